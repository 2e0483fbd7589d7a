// Package console implements the operator's line-oriented command loop: the
// only mutation path for moderating submissions, injecting and deleting
// listings, adjusting counters, and managing the banner media set.
package console

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/khatadev/khata/internal/errors"
	"github.com/khatadev/khata/internal/live"
	"github.com/khatadev/khata/internal/media"
	"github.com/khatadev/khata/internal/models"
	"github.com/khatadev/khata/internal/repository"
	"github.com/khatadev/khata/internal/services"
	"github.com/khatadev/khata/internal/store"
)

const helpText = `Admin:
  help | list | count | reset

  # pending
  pend
  pub <code>
  reject <code>

  # banners
  bscan | blink <URL|#> | bclear | bshow | baddlocal <path> | bdel <filename>

  # ads
  add title|district|price|phone|rooms|kind|desc|imageURL[,imageURL2,...]
  addnorm ... | addhot ...
  delcode <5digits>
  addviews <id|code> <N> | addlikes <id|code> <N>
`

// command is one parsed console line: the verb plus its raw argument tail.
// Each verb's handler tokenizes the tail the way its grammar needs.
type command struct {
	verb string
	rest string
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// parseCommand splits a non-empty line into verb and argument tail.
func parseCommand(line string) command {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	return command{verb: verb, rest: strings.TrimSpace(rest)}
}

// Console drives the moderation queue, listing repository and banner set
// from a line-oriented input stream.
type Console struct {
	store      *store.Store
	repo       repository.ListingRepository
	moderation *services.ModerationService
	media      *media.Manager
	publisher  *live.Publisher
	baseURL    string
	out        io.Writer

	handlers map[string]func(rest string) error
}

// New wires a console over the given collaborators. baseURL makes banner
// URLs absolute in command output; out receives command results and error
// reports.
func New(st *store.Store, repo repository.ListingRepository, moderation *services.ModerationService,
	m *media.Manager, publisher *live.Publisher, baseURL string, out io.Writer) *Console {
	c := &Console{
		store:      st,
		repo:       repo,
		moderation: moderation,
		media:      m,
		publisher:  publisher,
		baseURL:    baseURL,
		out:        out,
	}
	// One dispatch table entry per verb in the closed command set.
	c.handlers = map[string]func(string) error{
		"help":      c.cmdHelp,
		"list":      c.cmdList,
		"count":     c.cmdCount,
		"reset":     c.cmdReset,
		"pend":      c.cmdPend,
		"pub":       c.cmdPub,
		"reject":    c.cmdReject,
		"bscan":     c.cmdBScan,
		"blink":     c.cmdBLink,
		"bclear":    c.cmdBClear,
		"bshow":     c.cmdBShow,
		"baddlocal": c.cmdBAddLocal,
		"bdel":      c.cmdBDel,
		"add":       func(rest string) error { return c.cmdAdd(services.KindNormal, rest) },
		"addnorm":   func(rest string) error { return c.cmdAdd(services.KindNormal, rest) },
		"addhot":    func(rest string) error { return c.cmdAdd(services.KindHot, rest) },
		"delcode":   c.cmdDelCode,
		"addviews":  func(rest string) error { return c.cmdAdjust(rest, c.repo.AddViews, "ADDVIEWS") },
		"addlikes":  func(rest string) error { return c.cmdAdjust(rest, c.repo.AddLikes, "ADDLIKES") },
	}
	return c
}

// Run reads commands line by line until the input stream ends. Handler
// errors are printed and the loop continues; nothing here terminates the
// process.
func (c *Console) Run(r io.Reader) {
	fmt.Fprint(c.out, helpText)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd := parseCommand(line)
		handler, ok := c.handlers[cmd.verb]
		if !ok {
			fmt.Fprintln(c.out, "unknown. type 'help'")
			continue
		}
		if err := handler(cmd.rest); err != nil {
			fmt.Fprintln(c.out, "[ERR]", err)
		}
	}
}

// Dispatch runs a single command line; exported for tests and scripted use.
func (c *Console) Dispatch(line string) error {
	cmd := parseCommand(line)
	handler, ok := c.handlers[cmd.verb]
	if !ok {
		return fmt.Errorf("unknown command %q", cmd.verb)
	}
	return handler(cmd.rest)
}

func (c *Console) cmdHelp(string) error {
	fmt.Fprint(c.out, helpText)
	return nil
}

func (c *Console) cmdList(string) error {
	hot, normal := c.repo.Snapshot()
	for _, a := range append(hot, normal...) {
		fmt.Fprintf(c.out, "%s - [%s] - %s\n", a.ID, a.Code, a.Title)
	}
	return nil
}

func (c *Console) cmdCount(string) error {
	hot, normal := c.repo.Snapshot()
	pending := c.moderation.Pending()
	fmt.Fprintf(c.out, "hot: %d normal: %d pending: %d\n", len(hot), len(normal), len(pending))
	return nil
}

func (c *Console) cmdReset(string) error {
	if err := c.repo.Reset(); err != nil {
		return err
	}
	c.publisher.PublishListings()
	fmt.Fprintln(c.out, "[RESET] done")
	return nil
}

func (c *Console) cmdPend(string) error {
	for _, p := range c.moderation.Pending() {
		fmt.Fprintf(c.out, "[PENDING] %s [%s] %s files=%d\n", p.Kind, p.Code, p.Data.Title, len(p.OrderFiles))
	}
	return nil
}

func (c *Console) cmdPub(rest string) error {
	if rest == "" {
		return apperrors.ErrBadCommand{Command: "pub", Usage: "pub <code>"}
	}
	return c.moderation.Publish(rest)
}

func (c *Console) cmdReject(rest string) error {
	if rest == "" {
		return apperrors.ErrBadCommand{Command: "reject", Usage: "reject <code>"}
	}
	if err := c.moderation.Reject(rest); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "[REJECTED]", rest)
	return nil
}

func (c *Console) cmdBScan(string) error {
	c.publisher.PublishBanner()
	fmt.Fprintln(c.out, "[BSCAN]")
	return nil
}

func (c *Console) cmdBLink(rest string) error {
	link := rest
	if link == "" {
		link = "#"
	}
	if err := c.store.Update(func(st *models.State) { st.Banner.Link = link }); err != nil {
		return err
	}
	c.publisher.PublishBanner()
	fmt.Fprintln(c.out, "[BLINK]", link)
	return nil
}

func (c *Console) cmdBClear(string) error {
	c.media.ClearBanners()
	c.publisher.PublishBanner()
	fmt.Fprintln(c.out, "[BCLEAR]")
	return nil
}

func (c *Console) cmdBShow(string) error {
	urls := []string{}
	for _, u := range c.media.ScanBanners() {
		urls = append(urls, media.AbsURL(c.baseURL, u))
	}
	fmt.Fprintln(c.out, "[BSHOW]", urls)
	return nil
}

func (c *Console) cmdBAddLocal(rest string) error {
	if rest == "" {
		return apperrors.ErrBadCommand{Command: "baddlocal", Usage: "baddlocal <path>"}
	}
	dst, err := c.media.AddBannerLocal(rest, nowMillis())
	if err != nil {
		return err
	}
	c.publisher.PublishBanner()
	fmt.Fprintln(c.out, "[BADDLOCAL] ->", dst)
	return nil
}

func (c *Console) cmdBDel(rest string) error {
	if rest == "" {
		return apperrors.ErrBadCommand{Command: "bdel", Usage: "bdel <filename>"}
	}
	if err := c.media.RemoveBanner(filepath.Base(rest)); err != nil {
		return err
	}
	c.publisher.PublishBanner()
	fmt.Fprintln(c.out, "[BDEL]")
	return nil
}

// cmdAdd parses the pipe-separated payload:
// title|district|price|phone|rooms|kind|desc|imgURL[,imgURL...]
func (c *Console) cmdAdd(kind, rest string) error {
	parts := strings.Split(rest, "|")
	if len(parts) < 8 {
		return apperrors.ErrBadCommand{
			Command: "add",
			Usage:   "add title|district|price|phone|rooms|kind|desc|imgURL[,imgURL2,...]",
		}
	}
	title, district, priceRaw, phone, rooms, propKind, desc, imgCSV :=
		parts[0], parts[1], parts[2], parts[3], parts[4], parts[5], parts[6], parts[7]
	images := []string{}
	for _, u := range strings.Split(imgCSV, ",") {
		if u = strings.TrimSpace(u); u != "" {
			images = append(images, u)
		}
	}
	ad, err := c.moderation.InjectListing(kind, title, district, services.ParsePrice(priceRaw),
		phone, rooms, propKind, desc, images)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "[ADD-%s] %s [%s] imgs:%d\n", strings.ToUpper(kind), ad.Title, ad.Code, len(ad.Images))
	return nil
}

func (c *Console) cmdDelCode(rest string) error {
	if rest == "" {
		return apperrors.ErrBadCommand{Command: "delcode", Usage: "delcode <code>"}
	}
	removed, err := c.repo.RemoveByCode(rest)
	if err != nil {
		return err
	}
	c.publisher.PublishListings()
	fmt.Fprintf(c.out, "[DELCODE] %s removed: %d\n", rest, removed)
	return nil
}

// cmdAdjust handles addviews/addlikes: "<id|code> <N>".
func (c *Console) cmdAdjust(rest string, adjust func(key string, n int) error, tag string) error {
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return apperrors.ErrBadCommand{Command: strings.ToLower(tag), Usage: strings.ToLower(tag) + " <id|code> <N>"}
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return apperrors.ErrBadCommand{Command: strings.ToLower(tag), Usage: strings.ToLower(tag) + " <id|code> <N>"}
	}
	if err := adjust(fields[0], n); err != nil {
		return err
	}
	c.publisher.PublishListings()
	fmt.Fprintf(c.out, "[%s] %s + %d\n", tag, fields[0], n)
	return nil
}
