package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hamed0406/pingmonitor/internal/domain"
	"github.com/hamed0406/pingmonitor/internal/session"
)

type event struct {
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	ResponseTime *float64  `json:"responseTime"`
	Success      bool      `json:"success"`
	Error        *string   `json:"error"`
}

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	api = strings.TrimRight(api, "/")

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Enter a host to ping (e.g., 8.8.8.8 or example.com): ")
	raw, _ := reader.ReadString('\n')
	host := strings.TrimSpace(raw)
	if !domain.ValidHost(host) {
		fmt.Println("Invalid host.")
		os.Exit(1)
	}

	// Connect first: sessions only stream to sockets open when they start.
	wsURL := "ws" + strings.TrimPrefix(api, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		fmt.Println("Error connecting to", wsURL+":", err)
		os.Exit(1)
	}
	defer conn.Close()

	body, _ := json.Marshal(map[string]any{"host": host})
	resp, err := http.Post(api+"/probe/start", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Println("Error contacting API:", err)
		os.Exit(1)
	}
	msg, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("API returned %s: %s\n", resp.Status, strings.TrimSpace(string(msg)))
		os.Exit(1)
	}

	for {
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			fmt.Println("Connection closed:", err)
			return
		}
		switch ev.Type {
		case session.TypePing:
			printPing(ev)
		case session.TypeError:
			fmt.Println("error:", ev.Message)
		default:
			fmt.Println(ev.Message)
			if ev.Message == session.FinishedMessage {
				return
			}
		}
	}
}

func printPing(ev event) {
	ts := ev.Timestamp.Local().Format("15:04:05")
	switch {
	case !ev.Success:
		detail := "no reply"
		if ev.Error != nil {
			detail = *ev.Error
		}
		fmt.Printf("%s  FAIL  %s\n", ts, detail)
	case ev.ResponseTime == nil:
		fmt.Printf("%s  ok    (latency unknown)\n", ts)
	default:
		fmt.Printf("%s  ok    %.1f ms\n", ts, *ev.ResponseTime)
	}
}
