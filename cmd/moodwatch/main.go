package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	moodsense "github.com/moodsense/moodsense"
)

func main() {
	var (
		serverURL  = flag.String("url", "ws://localhost:8089/ws", "state feed URL")
		outputPath = flag.String("output", "", "optional file to append state changes to")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		logger.Fatalf("Failed to connect to %s: %v", *serverURL, err)
	}
	defer conn.Close()

	var bufWriter *bufio.Writer
	if *outputPath != "" {
		outputFile, err := os.OpenFile(*outputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Fatalf("Failed to open output file: %v", err)
		}
		defer outputFile.Close()

		bufWriter = bufio.NewWriter(outputFile)
		defer bufWriter.Flush()
	}

	fmt.Println("Listening... Press Ctrl+C to stop.")

	done := make(chan struct{})
	go func() {
		defer close(done)
		reader(conn, bufWriter, logger)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sig:
	case <-done:
	}
	fmt.Println("\nDone.")
}

func reader(conn *websocket.Conn, bufWriter *bufio.Writer, logger *log.Logger) {
	for {
		var msg moodsense.StateMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Printf("Feed read error: %v", err)
			}
			return
		}

		if msg.Status != "ok" {
			if msg.Error != "" {
				fmt.Printf("Pipeline stopped: %s\n", msg.Error)
			} else {
				fmt.Println("Pipeline stopped.")
			}
			return
		}
		if msg.State == nil {
			continue
		}

		render(*msg.State)

		if bufWriter != nil {
			line := fmt.Sprintf("[%s] %s %.0f%% (%s)\n",
				time.Now().Format("15:04:05"),
				msg.State.Dominant, msg.State.Confidence*100, msg.State.IntensityLevel())
			if _, err := bufWriter.WriteString(line); err != nil {
				logger.Printf("Failed to write to output file: %v", err)
			} else {
				bufWriter.Flush()
			}
		}
	}
}

// render prints the dominant emotion and a per-class confidence bar
// breakdown.
func render(state moodsense.EmotionState) {
	info := state.Dominant.Info()
	fmt.Printf("\n%s %s  %.1f%% confidence, %s intensity (rev %d)\n",
		info.Emoji, strings.ToUpper(string(state.Dominant)),
		state.Confidence*100, state.IntensityLevel(), state.Revision)

	type entry struct {
		label moodsense.Label
		score float32
	}
	entries := make([]entry, 0, len(state.Scores))
	for label, score := range state.Scores {
		entries = append(entries, entry{label, score})
	}
	sort.Slice(entries, func(i, k int) bool { return entries[i].score > entries[k].score })

	for _, e := range entries {
		bar := strings.Repeat("#", int(e.score*20))
		fmt.Printf("  %-8s %-20s %.1f%%\n", e.label, bar, e.score*100)
	}
}
