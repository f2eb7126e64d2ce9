package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"roomchat/internal/client"
	"roomchat/internal/models"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	roomID    string
	username  string
)

// rootCmd connects to a chat server, joins one room, and bridges stdin
// lines to chat messages. `/delete <id>` removes one of your own
// messages, `/quit` exits.
var rootCmd = &cobra.Command{
	Use:   "chat-client",
	Short: "Terminal client for the roomchat server",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&serverURL, "server", "ws://localhost:3000/ws", "websocket endpoint of the chat server")
	rootCmd.Flags().StringVar(&roomID, "room", "general", "room to join")
	rootCmd.Flags().StringVar(&username, "name", "", "display name (required)")
	rootCmd.MarkFlagRequired("name")
}

func run(cmd *cobra.Command, args []string) error {
	a, err := client.Dial(cmd.Context(), serverURL)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", serverURL, err)
	}
	defer a.Close()

	a.OnHistory = func(msgs []*models.Message) {
		for _, m := range msgs {
			printMessage(m)
		}
	}
	a.OnMessage = func(m *models.Message) {
		printMessage(m)
	}
	a.OnNotice = func(event string, n models.UserNotice) {
		fmt.Printf("* %s\n", n.Message)
	}
	a.OnRoster = func(names []string) {
		fmt.Printf("* online: %s\n", strings.Join(names, ", "))
	}
	a.OnTyping = func(name string, isTyping bool) {
		if isTyping {
			fmt.Printf("* %s is typing...\n", name)
		}
	}
	a.OnDeleted = func(messageID, deletedBy string) {
		fmt.Printf("* %s deleted message %s\n", deletedBy, messageID)
	}

	if err := a.Join(roomID, username); err != nil {
		return err
	}
	fmt.Printf("joined room %q as %q\n", roomID, username)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case strings.HasPrefix(line, "/delete "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/delete "))
			if err := a.DeleteMessage(id); err != nil {
				return err
			}
		default:
			if err := a.SendText(line); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

func printMessage(m *models.Message) {
	if m.FileURL != "" {
		fmt.Printf("[%s] %s: %s (%s %s)\n", m.ID, m.Username, m.Body, m.Kind, m.FileURL)
		return
	}
	fmt.Printf("[%s] %s: %s\n", m.ID, m.Username, m.Body)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
