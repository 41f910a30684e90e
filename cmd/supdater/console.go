package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/sershocode/supdater/internal/updater"
)

const defaultWidth = 80

// Line is the transient status line at the bottom of the console.
// It remembers how much it printed so a shorter text fully covers a longer one.
type Line struct {
	width int
}

// Rewrite replaces the transient line with text.
func (l Line) Rewrite(w io.Writer, text string) Line {
	n := lipgloss.Width(text)
	pad := max(l.width-n, 0)
	fmt.Fprint(w, "\r"+text+strings.Repeat(" ", pad))
	return Line{width: n}
}

// Clear blanks the transient line and leaves the cursor at its start.
func (l Line) Clear(w io.Writer) Line {
	if l.width == 0 {
		return l
	}
	fmt.Fprint(w, "\r"+strings.Repeat(" ", l.width)+"\r")
	return Line{}
}

// Console renders a run for a human. It implements updater.Reporter.
type Console struct {
	out         io.Writer
	in          *bufio.Reader
	line        Line
	width       int
	interactive bool
	dryRun      bool
	// transient lines only make sense on a terminal
	live bool

	// a single goroutine owns in; it reads one line per request
	readerOnce sync.Once
	requests   chan struct{}
	lines      chan lineResult
	// a request was sent and its line has not been consumed yet
	pending bool
}

var _ updater.Reporter = (*Console)(nil)

func newConsole(out io.Writer, in io.Reader, interactive bool) *Console {
	c := &Console{
		out:         out,
		in:          bufio.NewReader(in),
		width:       defaultWidth,
		interactive: interactive,
	}
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		c.live = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			c.width = w
		}
	}
	return c
}

// Println prints a persistent line above the status line.
func (c *Console) Println(text string) {
	c.line = c.line.Clear(c.out)
	fmt.Fprintln(c.out, text)
}

// Status replaces the transient status line.
func (c *Console) Status(text string) {
	if !c.live {
		return
	}
	c.line = c.line.Rewrite(c.out, text)
}

func (c *Console) Ignored(rel string) {
	c.Status(gray.Render("Filtered: " + shortenPath(rel, c.width)))
}

func (c *Console) UpToDate(rel string) {
	c.Status(lightGray.Render("Checked: " + shortenPath(rel, c.width)))
}

func (c *Console) Downloading(rel string, size int64) {
	c.Status(cyan.Render(fmt.Sprintf("Downloading: %s (%s)", shortenPath(rel, c.width), humanize.IBytes(uint64(size)))))
}

func (c *Console) Downloaded(rel string, size int64) {
	c.Println(green.Render(fmt.Sprintf("Downloaded: %s (%s)", shortenPath(rel, c.width), humanize.IBytes(uint64(size)))))
}

func (c *Console) Deleting(rel string, dir bool) {
	kind := "file"
	if dir {
		kind = "dir"
	}
	verb := "Deleting"
	if c.dryRun {
		verb = "Would delete"
	}
	c.Println(red.Render(fmt.Sprintf("%s %s: %s", verb, kind, shortenPath(rel, c.width))))
}

// Summary prints the closing report of a run.
func (c *Console) Summary(res *updater.Result) {
	c.Println(fmt.Sprintf("Download complete. Downloaded %s. Processed %d files",
		humanize.IBytes(uint64(res.DownloadedBytes)), res.RemoteFiles))
	c.Println(fmt.Sprintf("Filtered by rules: %d", res.Ignored))

	if plan := res.Plan; plan != nil {
		c.Println(fmt.Sprintf("Files to delete: %d (filtered by rules: %d)", len(plan.Files), plan.Protected))
		c.Println(fmt.Sprintf("Dirs to delete: %d", len(plan.Dirs)))
	}
	if res.DryRun {
		c.Println(yellow.Render("Dry run, nothing was deleted"))
		return
	}
	c.Println(green.Render("All files updated! took " + formatElapsed(res.Duration)))
}

// Countdown waits the given number of seconds, showing the time left.
func (c *Console) Countdown(ctx context.Context, seconds int) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for left := seconds; left > 0; left-- {
		c.Status(yellow.Render(fmt.Sprintf("Starting in %d s, press Ctrl+C to abort", left)))
		select {
		case <-ctx.Done():
			c.line = c.line.Clear(c.out)
			return ctx.Err()
		case <-ticker.C:
		}
	}
	c.line = c.line.Clear(c.out)
	return nil
}

// WaitEnter blocks until the user presses Enter.
func (c *Console) WaitEnter(ctx context.Context, prompt string) error {
	c.Println(gray.Render(prompt))
	_, err := c.readLine(ctx)
	return err
}

// Confirm asks a yes/no question. An empty answer means yes.
func (c *Console) Confirm(ctx context.Context, prompt string) (bool, error) {
	c.Println(prompt)
	answer, err := c.readLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

type lineResult struct {
	text string
	err  error
}

// readLine returns the next line typed by the user. A prompt cancelled while
// waiting leaves its read outstanding, and the line it gets answers the next
// prompt, so in is never read by two goroutines.
func (c *Console) readLine(ctx context.Context) (string, error) {
	c.readerOnce.Do(c.startReader)
	if !c.pending {
		c.requests <- struct{}{}
		c.pending = true
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-c.lines:
		c.pending = false
		// a closed stdin answers every question with the default
		if r.err != nil && !errors.Is(r.err, io.EOF) {
			return "", r.err
		}
		return strings.TrimSpace(r.text), nil
	}
}

func (c *Console) startReader() {
	c.requests = make(chan struct{}, 1)
	c.lines = make(chan lineResult, 1)
	go func() {
		for range c.requests {
			text, err := c.in.ReadString('\n')
			c.lines <- lineResult{text: text, err: err}
		}
	}()
}

// shortenPath keeps a path within half of the console width by dropping its
// leading segments.
func shortenPath(p string, width int) string {
	limit := width/2 - 3
	if limit <= 0 || len(p) <= limit {
		return p
	}
	parts := strings.Split(p, "/")
	if len(parts) < 2 {
		return p
	}
	return ".../" + strings.Join(parts[len(parts)/2:], "/")
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, d/time.Second)
}
