// Package provision implements the line-oriented setup console used to
// store WiFi credentials and bring the station link up or down.
package provision

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/robot.frontend/internal/monitoring"
)

// Namespace and keys the console stores credentials under.
const (
	StorageNamespace = "storage"
	KeySSID          = "wifi-ssid"
	KeyPassword      = "wifi-passwd"
)

// MaxLineLength caps a command line; longer input is cut off.
const MaxLineLength = 59

var logger = monitoring.Tag("console")

// Settings is the key/value store behind the console.
type Settings interface {
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string) error
}

// Console reads commands from in and writes replies to out.
type Console struct {
	in       *bufio.Reader
	out      io.Writer
	settings Settings
	wifi     WiFi
}

// NewConsole returns a Console. A nil wifi uses UnmanagedWiFi.
func NewConsole(in io.Reader, out io.Writer, settings Settings, wifi WiFi) *Console {
	if wifi == nil {
		wifi = UnmanagedWiFi{}
	}
	return &Console{
		in:       bufio.NewReader(in),
		out:      out,
		settings: settings,
		wifi:     wifi,
	}
}

// Run prompts for and executes commands until quit, end of input or ctx is
// done. Quit and end of input return nil.
func (c *Console) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.prompt()

		line, err := c.readLine()
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read command: %w", err)
		}
		if err != nil && line == "" {
			return nil
		}
		fmt.Fprintf(c.out, "\nYou wrote: %s\n", line)

		if c.Exec(ctx, line) {
			return nil
		}
		if err != nil {
			// Final line without a newline.
			return nil
		}
	}
}

func (c *Console) prompt() {
	if ip := c.wifi.IPAddr(); ip != "" {
		fmt.Fprintf(c.out, "%s Enter command:\n", ip)
		return
	}
	fmt.Fprintln(c.out, "Enter command:")
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength]
	}
	return line, err
}

// Exec runs one command line and reports whether it was quit. Lines that
// match no command are ignored.
func (c *Console) Exec(ctx context.Context, line string) bool {
	switch {
	case strings.HasPrefix(line, "scan"):
		c.scan(ctx)
	case strings.HasPrefix(line, "query"):
		c.query(ctx, strings.HasPrefix(line, "query all"))
	case strings.HasPrefix(line, "set ssid"):
		c.set(ctx, KeySSID, argument(line, len("set ssid ")))
	case strings.HasPrefix(line, "set passwd"):
		c.set(ctx, KeyPassword, argument(line, len("set passwd ")))
	case strings.HasPrefix(line, "wifistart"):
		c.wifiStart(ctx)
	case strings.HasPrefix(line, "wifistop"):
		if err := c.wifi.Stop(); err != nil {
			fmt.Fprintf(c.out, "Failed to stop wifi: %v\n", err)
		}
	case strings.HasPrefix(line, "quit"):
		fmt.Fprintln(c.out, "Quitting...")
		return true
	}
	return false
}

// argument returns the right-trimmed text of line from offset on.
func argument(line string, offset int) string {
	line = strings.TrimRight(line, " \t\r\n\v\f")
	if offset >= len(line) {
		return ""
	}
	return line[offset:]
}

func (c *Console) scan(ctx context.Context) {
	aps, err := c.wifi.Scan(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Scan failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Total APs scanned = %d\n", len(aps))
	for _, ap := range aps {
		fmt.Fprintf(c.out, "SSID \t\t%s\nRSSI \t\t%d\nChannel \t\t%d\n", ap.SSID, ap.RSSI, ap.Channel)
	}
}

func (c *Console) query(ctx context.Context, showPassword bool) {
	if ssid, err := c.settings.GetString(ctx, KeySSID); err != nil {
		fmt.Fprintf(c.out, "Failed to get key: %v\n", err)
	} else {
		fmt.Fprintf(c.out, "%s: \"%s\"\n", KeySSID, ssid)
	}

	passwd, err := c.settings.GetString(ctx, KeyPassword)
	switch {
	case err != nil:
		fmt.Fprintf(c.out, "Failed to get key: %v\n", err)
	case showPassword:
		fmt.Fprintf(c.out, "%s: \"%s\"\n", KeyPassword, passwd)
	default:
		fmt.Fprintf(c.out, "%s: <is set>\n", KeyPassword)
	}
}

func (c *Console) set(ctx context.Context, key, value string) {
	if err := c.settings.SetString(ctx, key, value); err != nil {
		fmt.Fprintf(c.out, "Failed to write key: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Wrote %s.\n", key)
}

func (c *Console) wifiStart(ctx context.Context) {
	passwd, err := c.settings.GetString(ctx, KeyPassword)
	if err != nil {
		fmt.Fprintln(c.out, "Wifi not configured.")
		return
	}
	ssid, err := c.settings.GetString(ctx, KeySSID)
	if err != nil {
		fmt.Fprintln(c.out, "Wifi not configured.")
		return
	}
	fmt.Fprintf(c.out, "Attempting Wifi connection to %s...\n", ssid)
	if err := c.wifi.Connect(ctx, ssid, passwd); err != nil {
		logger.Printf("connect to %q failed: %v", ssid, err)
	}
}
