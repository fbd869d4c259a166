// talent-chat is an interactive terminal client for the TalentWire
// conversation service. Plain input is sent to the active chat; slash
// commands manage chats, pagination, and voice.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Mawhubtech/talentwire-go/pkg/core/stream"
	"github.com/Mawhubtech/talentwire-go/pkg/core/voice"
	talentwire "github.com/Mawhubtech/talentwire-go/sdk"
)

func main() {
	_ = godotenv.Load()

	cfg, err := loadConfig(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "talent-chat:", err)
		os.Exit(2)
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		fmt.Fprintln(os.Stderr, "talent-chat:", err)
		os.Exit(1)
	}
}

func run(cfg config, logger *slog.Logger) error {
	client, err := talentwire.NewClient(cfg.URL,
		talentwire.WithLogger(logger),
		talentwire.WithRequestTimeout(cfg.Timeout),
		talentwire.WithSearchEndpoint(cfg.SearchURL),
		talentwire.WithSynthesisEndpoint(cfg.SynthesisURL),
		talentwire.WithSynthesisVoice(cfg.Voice),
		talentwire.WithMetrics(nil),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.Connect(ctx, cfg.Token); err != nil {
		return err
	}
	fmt.Println("connected. type a message, or /help for commands.")

	client.Chats.OnDelta(func(d talentwire.Delta) {
		fmt.Printf("\r\033[K%s", d.Content)
	})
	client.Chats.OnMessage(func(msg stream.Message) {
		if msg.Role == stream.RoleAssistant {
			fmt.Printf("\r\033[Kassistant> %s\n", msg.Content)
		}
	})
	client.Chats.OnStatus(func(status string) {
		if status != "" {
			fmt.Printf("\r\033[K[%s]", status)
		}
	})
	client.Chats.OnError(func(err error) {
		fmt.Printf("\r\033[Kerror: %v\n", err)
	})
	client.Search.OnResults(func(rs talentwire.ResultSet) {
		fmt.Printf("\r\033[K[%d of %d results for %q", len(rs.Results), rs.Handle.Total, rs.Query)
		if rs.Handle.HasMore {
			fmt.Print(", /next for more")
		}
		fmt.Println("]")
	})
	client.Voice.OnTranscript(func(tr talentwire.Transcript) {
		marker := "…"
		if tr.Final {
			marker = ""
		}
		fmt.Printf("\r\033[Kyou (voice)> %s%s", tr.Text, marker)
	})
	client.Voice.OnError(func(err error) {
		fmt.Printf("\r\033[Kvoice error: %v\n", err)
	})

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			if err := sendToActiveChat(ctx, client, line); err != nil {
				fmt.Println("error:", err)
			}
			continue
		}
		if quit := handleCommand(ctx, client, line); quit {
			return nil
		}
	}
}

// sendToActiveChat sends a message, creating a chat first if none is
// active.
func sendToActiveChat(ctx context.Context, client *talentwire.Client, content string) error {
	chatID := client.Chats.Active()
	if chatID == "" {
		chat, err := client.Chats.Create(ctx, talentwire.CreateChatRequest{})
		if err != nil {
			return err
		}
		chatID = chat.ID
		client.Chats.SetActive(chatID)
	}
	return client.Chats.Send(chatID, content)
}

func handleCommand(ctx context.Context, client *talentwire.Client, line string) (quit bool) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Print(`commands:
  /chats            list chats
  /new [title]      create a chat
  /open <id>        switch the active chat
  /delete <id>      delete a chat
  /next             fetch the next result page
  /voice            start voice transcription
  /send             stop recording and submit the transcript
  /discard          stop recording and drop the transcript
  /say <text>       speak text through the synthesizer
  /quit             exit
`)
	case "/chats":
		chats, err := client.Chats.List(ctx)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		for _, c := range chats {
			marker := " "
			if c.ID == client.Chats.Active() {
				marker = "*"
			}
			fmt.Printf("%s %s  %s\n", marker, c.ID, c.Title)
		}
	case "/new":
		chat, err := client.Chats.Create(ctx, talentwire.CreateChatRequest{Title: arg})
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		client.Chats.SetActive(chat.ID)
		fmt.Println("created", chat.ID)
	case "/open":
		if arg == "" {
			fmt.Println("usage: /open <id>")
			return false
		}
		if _, err := client.Chats.Get(ctx, arg); err != nil {
			fmt.Println("error:", err)
			return false
		}
		client.Chats.SetActive(arg)
	case "/delete":
		if arg == "" {
			fmt.Println("usage: /delete <id>")
			return false
		}
		if err := client.Chats.Delete(ctx, arg); err != nil {
			fmt.Println("error:", err)
		}
	case "/next":
		if err := client.Search.NextPage(ctx); err != nil {
			fmt.Println("error:", err)
		}
	case "/voice":
		if err := client.Voice.Start(client.Chats.Active(), voice.Options{}); err != nil {
			fmt.Println("error:", err)
		} else {
			fmt.Println("recording. /send to submit, /discard to drop.")
		}
	case "/send":
		if err := client.Voice.Stop(true); err != nil {
			fmt.Println("error:", err)
		}
	case "/discard":
		if err := client.Voice.Stop(false); err != nil {
			fmt.Println("error:", err)
		}
	case "/say":
		if arg == "" {
			fmt.Println("usage: /say <text>")
			return false
		}
		if err := client.Speech.Speak(ctx, arg); err != nil {
			fmt.Println("error:", err)
		}
	default:
		fmt.Println("unknown command; /help lists commands")
	}
	return false
}
