// Command-line client for the CampusLink messaging engine.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/campuslink/chatd/clients/go/chatd"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("CHATD_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	userID := os.Getenv("CHATD_USER")

	client := chatd.NewClient(baseURL, userID)
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "groups":
		resp, err := client.ListGroups()
		exitOnError(err)
		for _, g := range resp.Groups {
			fmt.Printf("  %s  %s (admin %s, %d members)\n", g.ID, g.Name, g.AdminID, len(g.Members))
		}

	case "create-group":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chatd create-group <name>")
			os.Exit(1)
		}
		group, err := client.CreateGroup(os.Args[2])
		exitOnError(err)
		fmt.Printf("Created group: %s (%s)\n", group.Name, group.ID)

	case "read":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chatd read <room_key>")
			os.Exit(1)
		}
		resp, err := client.GetMessages(os.Args[2], 50)
		exitOnError(err)
		for _, msg := range resp.Messages {
			ts := time.UnixMilli(msg.Timestamp).Format("2006-01-02 15:04:05")
			fmt.Printf("[%s] %s: %s\n", ts, msg.From, msg.Body)
		}

	case "send":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: chatd send <room_key> <message>")
			os.Exit(1)
		}
		conn, err := client.Connect()
		exitOnError(err)
		defer conn.Close()
		exitOnError(conn.SendMessage(os.Args[2], os.Args[3]))
		waitForAck(conn)

	case "listen":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chatd listen <room_key>...")
			os.Exit(1)
		}
		conn, err := client.Connect()
		exitOnError(err)
		defer conn.Close()
		for _, room := range os.Args[2:] {
			exitOnError(conn.Join(room))
		}
		for ev := range conn.Events() {
			fmt.Printf("%s: %s\n", ev.Type, string(ev.Payload))
		}

	case "unread":
		resp, err := client.Unread()
		exitOnError(err)
		for room, count := range resp.Counts {
			fmt.Printf("  %s: %d\n", room, count)
		}

	case "mark-read":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chatd mark-read <room_key>")
			os.Exit(1)
		}
		exitOnError(client.MarkRead(os.Args[2]))
		fmt.Println("OK")

	default:
		usage()
		os.Exit(1)
	}
}

// waitForAck reads events until the send is acknowledged or rejected.
func waitForAck(conn *chatd.Conn) {
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-conn.Events():
			if !ok {
				fmt.Fprintln(os.Stderr, "connection closed")
				os.Exit(1)
			}
			switch ev.Type {
			case "message_sent":
				fmt.Println("Sent")
				return
			case "error":
				fmt.Fprintf(os.Stderr, "Error: %s\n", string(ev.Payload))
				os.Exit(1)
			}
		case <-timeout:
			fmt.Fprintln(os.Stderr, "timed out waiting for acknowledgement")
			os.Exit(1)
		}
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `chatd - CampusLink messaging client

Usage: chatd <command> [args]

Environment:
  CHATD_URL   server base URL (default http://localhost:8080)
  CHATD_USER  acting user id

Commands:
  health                      engine health report
  groups                      list groups
  create-group <name>         create a group
  read <room_key>             print recent room history
  send <room_key> <message>   send a message
  listen <room_key>...        join rooms and stream events
  unread                      print unread counters
  mark-read <room_key>        reset a room's unread counter`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
