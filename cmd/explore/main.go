// Command explore asks the recommendation backend what to do in a destination
// and prints the weather and activity cards to the terminal.
//
//	explore [-backend URL] [-timeout 10s] <destination...>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/ZuzannaKurillova/trAIvel/internal/config"
	"github.com/ZuzannaKurillova/trAIvel/internal/explorer"
	"github.com/ZuzannaKurillova/trAIvel/internal/logging"
	"github.com/ZuzannaKurillova/trAIvel/internal/recommend"
	"github.com/ZuzannaKurillova/trAIvel/internal/session"
)

const cliSession = "cli"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Println("Warning: reading .env:", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	backend := flag.String("backend", cfg.BackendURL, "recommendation backend base URL")
	timeout := flag.Duration("timeout", cfg.RequestTimeout, "backend request timeout")
	verbose := flag.Bool("v", false, "log diagnostics to stderr")
	flag.Parse()

	level := "error"
	if *verbose {
		level = "debug"
	}
	logger, err := logging.New(os.Stderr, "text", level)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}

	destination := strings.TrimSpace(strings.Join(flag.Args(), " "))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := recommend.NewClient(*backend, recommend.WithTimeout(*timeout), recommend.WithLogger(logger))
	controller := explorer.NewController(client, session.NewMemoryStore(time.Hour), nil, logger)

	fmt.Fprintf(os.Stderr, "Exploring %s...\n", displayName(destination))
	st, err := controller.Explore(ctx, cliSession, destination)
	if err != nil {
		log.Fatalf("exploring: %v", err)
	}

	render(os.Stdout, st)
	if st.Outcome != recommend.KindOK {
		os.Exit(1)
	}
}

func displayName(destination string) string {
	if destination == "" {
		return "anywhere"
	}
	return destination
}

// render prints a settled state as plain-text cards.
func render(w io.Writer, st explorer.State) {
	if st.Outcome != recommend.KindOK {
		fmt.Fprintf(w, "Search failed (%s): %s\n", st.Outcome, st.Message)
		return
	}

	if wx := st.Weather; wx != nil {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "Weather in %s\n", displayName(st.Destination))
		if wx.Description != "" {
			fmt.Fprintf(tw, "  conditions\t%s\n", wx.Description)
		}
		if wx.Temperature != nil {
			fmt.Fprintf(tw, "  temperature\t%.0f°C\n", *wx.Temperature)
		}
		if wx.Humidity != nil {
			fmt.Fprintf(tw, "  humidity\t%.0f%%\n", *wx.Humidity)
		}
		if wx.WindSpeed != nil {
			fmt.Fprintf(tw, "  wind\t%.1f m/s\n", *wx.WindSpeed)
		}
		_ = tw.Flush()
		fmt.Fprintln(w)
	}

	if len(st.Activities) == 0 {
		fmt.Fprintln(w, "No activities found.")
		return
	}

	for i, a := range st.Activities {
		fmt.Fprintf(w, "%d. %s\n", i+1, a.Name)
		if a.Description != "" {
			fmt.Fprintf(w, "   %s\n", a.Description)
		}
		if a.ImageURL != "" {
			fmt.Fprintf(w, "   %s\n", a.ImageURL)
		}
	}
}
