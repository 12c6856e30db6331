package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/UnknownOlympus/thunders/internal/cache"
	"github.com/UnknownOlympus/thunders/internal/mapview"
	"github.com/UnknownOlympus/thunders/internal/models"
)

const helpText = `commands:
  click <lat> <lng>   record a sighting at a point
  markers             list rendered markers
  select <key>        open the popup of a marker
  close               close the popup
  suggest <text>      autocomplete an address near the map center
  pick <n>            go to the n-th suggestion
  search <address>    go to an address
  locate <lat> <lng>  go to a point
  refresh             reload sightings from the store
  quit                exit`

var errUsage = errors.New("usage")

// console renders a map session as text. It stands in for a browser map.
type console struct {
	log     *slog.Logger
	session *mapview.Session
	cache   *cache.ListCache

	mu          sync.Mutex
	out         io.Writer
	suggestions []models.Suggestion
}

// PanTo implements mapview.Surface.
func (c *console) PanTo(coords models.Coordinates) {
	c.printf("map: centered on %.6f, %.6f\n", coords.Latitude, coords.Longitude)
}

// SetZoom implements mapview.Surface.
func (c *console) SetZoom(level int) {
	c.printf("map: zoom %d\n", level)
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, format, args...)
}

// watch prints marker counts and notices until ctx is done.
func (c *console) watch(ctx context.Context, notices *mapview.Notices) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.cache.Updates():
			c.printf("markers: %d\n", len(c.session.Markers()))
		case notice := <-notices.C():
			c.printf("! %s: %v\n", notice.Message, notice.Err)
		}
	}
}

// run reads commands from in until it is exhausted or quit is entered.
func (c *console) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	c.printf("%s\n> ", helpText)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" || line == "exit" {
			return nil
		}
		if line != "" {
			if err := c.execute(ctx, line); err != nil {
				c.log.DebugContext(ctx, "Command failed", "command", line, "error", err)
				c.printf("error: %v\n", err)
			}
		}
		c.printf("> ")
	}

	return scanner.Err()
}

func (c *console) execute(ctx context.Context, line string) error {
	command, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)

	switch command {
	case "help":
		c.printf("%s\n", helpText)
	case "click":
		coords, err := parseCoordinates(args)
		if err != nil {
			return err
		}
		mutation, err := c.session.ClickMap(ctx, coords)
		if err != nil {
			return err
		}
		c.printf("+ %s (pending)\n", mutation.ID)
	case "markers", "list":
		for _, marker := range c.session.Markers() {
			state := ""
			if marker.Pending {
				state = " (pending)"
			}
			c.printf("  %s  %.6f, %.6f%s\n", marker.Key, marker.Position.Latitude, marker.Position.Longitude, state)
		}
	case "select":
		if err := c.session.ClickMarker(args); err != nil {
			return err
		}
		c.printPopup()
	case "close":
		c.session.ClosePopup()
	case "suggest":
		suggestions, err := c.session.Suggest(ctx, args)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.suggestions = suggestions
		c.mu.Unlock()
		for i, s := range suggestions {
			c.printf("  %d. %s\n", i+1, s.Description)
		}
	case "pick":
		n, err := strconv.Atoi(args)
		c.mu.Lock()
		suggestions := c.suggestions
		c.mu.Unlock()
		if err != nil || n < 1 || n > len(suggestions) {
			return fmt.Errorf("%w: pick <1..%d>", errUsage, len(suggestions))
		}
		_, err = c.session.Search(ctx, suggestions[n-1].Description)
		return err
	case "search":
		if args == "" {
			return fmt.Errorf("%w: search <address>", errUsage)
		}
		_, err := c.session.Search(ctx, args)
		return err
	case "locate":
		coords, err := parseCoordinates(args)
		if err != nil {
			return err
		}
		return c.session.PanTo(coords)
	case "refresh":
		c.cache.Invalidate(ctx)
	default:
		return fmt.Errorf("unknown command %q, try help", command)
	}

	return nil
}

func (c *console) printPopup() {
	popup, ok := c.session.Popup()
	if !ok {
		return
	}
	c.printf("[%s] %s\n", popup.Title, popup.Body)
	if popup.Place != "" {
		c.printf("  %s\n", popup.Place)
	}
}

// parseCoordinates reads "<lat> <lng>", also accepting a comma between the two.
func parseCoordinates(args string) (models.Coordinates, error) {
	fields := strings.Fields(strings.ReplaceAll(args, ",", " "))
	if len(fields) != 2 {
		return models.Coordinates{}, fmt.Errorf("%w: <lat> <lng>", errUsage)
	}

	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: latitude %q", models.ErrInvalidCoordinates, fields[0])
	}
	lng, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: longitude %q", models.ErrInvalidCoordinates, fields[1])
	}

	coords := models.Coordinates{Latitude: lat, Longitude: lng}
	return coords, coords.Validate()
}
