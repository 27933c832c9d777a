// Command meetingctl uploads a meeting recording to the API, waits for the
// analysis and prints it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"meeting-insights-go/internal/types"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "API base URL")
	file := flag.String("file", "", "audio file to upload")
	consent := flag.String("consent", "", "answer the consent check after processing (true|false)")
	interval := flag.Duration("interval", 5*time.Second, "status poll interval")
	maxPolls := flag.Uint64("max-polls", 60, "maximum number of status checks")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: meetingctl -file meeting.m4a [-addr URL] [-consent true|false]")
		os.Exit(2)
	}
	answer, err := parseConsent(*consent)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdout, newAPIClient(*addr, 60*time.Second), *file, answer, *interval, *maxPolls); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// parseConsent returns nil when no answer was given. A denial deletes the
// meeting, so only values strconv.ParseBool understands are accepted.
func parseConsent(v string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return nil, fmt.Errorf("-consent must be true or false, got %q", v)
	}
	return &b, nil
}

func run(ctx context.Context, out io.Writer, c *apiClient, file string, consent *bool, interval time.Duration, maxPolls uint64) error {
	if fi, err := os.Stat(file); err == nil {
		fmt.Fprintf(out, "Uploading %s (%s)\n", file, humanize.Bytes(uint64(fi.Size())))
	}
	id, err := c.upload(ctx, file)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Meeting ID: %s\n", id)

	err = c.waitForCompletion(ctx, id, interval, maxPolls, func(st jobStatus) {
		fmt.Fprintf(out, "  status=%s progress=%d%%\n", st.Status, st.Progress)
	})
	if err != nil {
		return err
	}

	res, err := c.results(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch results: %w", err)
	}
	printResult(out, res)

	if consent != nil {
		msg, err := c.consent(ctx, id, *consent)
		if err != nil {
			return fmt.Errorf("consent check: %w", err)
		}
		fmt.Fprintln(out, msg)
	}
	return nil
}

func printResult(out io.Writer, res *types.MeetingResult) {
	a := res.Analysis
	fmt.Fprintf(out, "\nTranscript: %d words, ~%s", res.Transcript.WordCount, res.Transcript.DurationEstimate)
	if res.Transcript.Language != "" {
		fmt.Fprintf(out, ", language %s", res.Transcript.Language)
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "\nSUMMARY\n%s\n", a.Summary.Brief)

	fmt.Fprintf(out, "\nACTION ITEMS (%d)\n", len(a.ActionItems))
	for i, item := range a.ActionItems {
		fmt.Fprintf(out, "%d. [%s] %s", i+1, item.Priority, item.Task)
		if item.Owner != "" {
			fmt.Fprintf(out, " (owner: %s)", item.Owner)
		}
		if item.DueDate != "" {
			fmt.Fprintf(out, " due %s", item.DueDate)
		}
		fmt.Fprintln(out)
	}

	if len(a.FollowUpQuestions) > 0 {
		fmt.Fprintln(out, "\nFOLLOW-UP QUESTIONS")
		for i, q := range a.FollowUpQuestions {
			fmt.Fprintf(out, "%d. %s\n", i+1, q)
		}
	}

	fmt.Fprintf(out, "\nTopics: %s\n", strings.Join(a.TopicsDiscussed, ", "))
	fmt.Fprintf(out, "Sentiment: %s\n", a.Sentiment)
	fmt.Fprintf(out, "Meeting type: %s\n", a.MeetingType)
}
