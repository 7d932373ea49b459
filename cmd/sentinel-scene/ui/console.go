package ui

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/skyfold/swarmstage/pkg/logger"
)

// statusEvery throttles the periodic status line between phase changes.
const statusEvery = 2 * time.Second

// Console is the headless renderer: phase banners and status lines on
// stdout, single-letter commands on stdin. It owns the frame loop.
type Console struct {
	driver   Driver
	interval time.Duration
	log      logger.Logger

	lastPhase  string
	lastStatus time.Time
	width      int
}

// NewConsole creates a console renderer stepping the driver at the given
// frame interval.
func NewConsole(driver Driver, interval time.Duration) *Console {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		width = w
	}
	return &Console{
		driver:   driver,
		interval: interval,
		log:      logger.WithPrefix("console"),
		width:    width,
	}
}

// Run drives the scene until the context is cancelled or the operator
// quits. Stdin reading stays on its own goroutine; the frame loop owns
// the driver.
func (c *Console) Run(ctx context.Context) error {
	commands := make(chan Command, 8)
	go c.readCommands(ctx, commands)

	c.log.Info("commands: [n]ext [r]eset [d]emo [m]ute [g]enerate report [q]uit")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-commands:
			if cmd == CommandQuit {
				return nil
			}
			c.driver.Dispatch(cmd)
		case now := <-ticker.C:
			c.render(c.driver.Step(now), now)
		}
	}
}

// readCommands maps stdin lines onto Commands. EOF stops quietly so a
// detached stdin (e.g. a service runner) leaves the scene timer-driven.
func (c *Console) readCommands(ctx context.Context, out chan<- Command) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		var cmd Command
		switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
		case "n", "next":
			cmd = CommandNext
		case "r", "reset":
			cmd = CommandReset
		case "d", "demo":
			cmd = CommandToggleDemoMode
		case "m", "mute":
			cmd = CommandToggleMute
		case "g", "report":
			cmd = CommandGenerateReport
		case "q", "quit":
			cmd = CommandQuit
		case "":
			continue
		default:
			c.log.Warnf("unknown command %q", scanner.Text())
			continue
		}
		select {
		case out <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Console) render(s Snapshot, now time.Time) {
	if s.PhaseName != c.lastPhase {
		c.lastPhase = s.PhaseName
		c.printBanner(s)
		c.lastStatus = now
		return
	}
	if now.Sub(c.lastStatus) >= statusEvery {
		c.lastStatus = now
		c.printStatus(s)
	}
}

func (c *Console) printBanner(s Snapshot) {
	banner := color.New(color.FgCyan, color.Bold)
	pos := ""
	if s.TimelineIndex >= 0 {
		pos = fmt.Sprintf(" [%d/%d]", s.TimelineIndex+1, s.TimelineLen)
	}
	banner.Printf("\n== %s%s: %s ==\n", s.PhaseTitle, pos, s.PhaseDescription)
	if s.Report != "" {
		color.New(color.FgGreen).Println(s.Report)
	}
}

func (c *Console) printStatus(s Snapshot) {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-6s", s.PhaseName, s.Mode)
	fmt.Fprintf(&b, "  audio %s", audioBar(s.AudioLevel, 20))
	if s.ThreatLevel > 0 {
		fmt.Fprintf(&b, "  threat %d/5", s.ThreatLevel)
	}
	if s.GeneratingReport {
		b.WriteString("  " + logger.IconReport + " generating report")
	}
	if s.Muted {
		b.WriteString("  muted")
	}
	line := b.String()
	if len(line) > c.width {
		line = line[:c.width]
	}
	fmt.Println(line)
}

// audioBar renders the loudness as a fixed-width meter.
func audioBar(level float64, width int) string {
	if level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}
	filled := int(level * float64(width))
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	painter := color.New(color.FgGreen)
	if level > 0.6 {
		painter = color.New(color.FgRed)
	}
	return "[" + painter.Sprint(bar) + "]"
}
