package output

import (
	"fmt"
	"io"
	"log"

	"github.com/fatih/color"

	"github.com/tdh8316/profilescan/internal/model"
)

var verdictColors = map[model.Verdict]*color.Color{
	model.VerdictFound:    color.New(color.FgHiGreen),
	model.VerdictNotFound: color.New(color.FgHiYellow),
	model.VerdictTimeout:  color.New(color.FgYellow),
	model.VerdictError:    color.New(color.FgHiRed),
}

// FormatVerdict renders a verdict for the console. Unknown verdicts and
// noColor output are returned verbatim.
func FormatVerdict(v model.Verdict, noColor bool) string {
	c, ok := verdictColors[v]
	if noColor || !ok {
		return string(v)
	}
	return c.Sprint(string(v))
}

type Printer struct {
	noColor bool
	logger  *log.Logger
}

func NewPrinter(stdout io.Writer, noColor bool) *Printer {
	return &Printer{
		noColor: noColor,
		logger:  log.New(stdout, "", 0),
	}
}

// Notice prints a warning such as a config fallback or unknown platform.
func (p *Printer) Notice(msg string) {
	if p.noColor {
		p.logger.Printf("[!] %s", msg)
		return
	}
	p.logger.Printf("[%s] %s", color.HiRedString("!"), color.HiYellowString(msg))
}

func (p *Printer) Info(msg string) {
	if p.noColor {
		p.logger.Printf("[i] %s", msg)
		return
	}
	p.logger.Printf("[%s] %s", color.HiBlueString("i"), msg)
}

func (p *Printer) Start(username string) {
	if p.noColor {
		p.logger.Printf("Starting scan for '%s'...", username)
		return
	}
	p.logger.Printf("Starting scan for '%s'...", color.HiWhiteString(username))
}

// Report prints cached results, then probed results, then the tally.
// Section headers are skipped when their section is empty.
func (p *Printer) Report(r model.Report) {
	if len(r.Cached) > 0 {
		p.header("Cached Results:")
		for _, res := range r.Cached {
			p.logger.Printf("  %s %s: %s", p.bullet(res.Status), res.Site, FormatVerdict(res.Status, p.noColor))
		}
	}

	if len(r.Probed) > 0 {
		p.header(fmt.Sprintf("Live Scanning %d sites:", len(r.Probed)))
		for _, res := range r.Probed {
			icon := "❌"
			if res.Found() {
				icon = "✅"
			}
			p.logger.Printf("  %s %s: %s (%.2fs)", icon, res.Site, FormatVerdict(res.Status, p.noColor), res.ResponseTime)
		}
	}

	p.logger.Println()
	if p.noColor {
		p.logger.Println("Scan complete!")
		p.logger.Printf("   Found %d profiles out of %d sites", r.Found, r.Total)
		p.logger.Printf("   Username: %s", r.Username)
		return
	}
	p.logger.Println(color.HiGreenString("Scan complete!"))
	p.logger.Printf("   Found %s profiles out of %d sites", color.HiGreenString("%d", r.Found), r.Total)
	p.logger.Printf("   Username: %s", color.New(color.Bold).Sprint(r.Username))
}

func (p *Printer) header(title string) {
	p.logger.Println()
	if p.noColor {
		p.logger.Println(title)
		return
	}
	p.logger.Println(color.HiCyanString(title))
}

func (p *Printer) bullet(v model.Verdict) string {
	if p.noColor {
		return "●"
	}
	if v == model.VerdictFound {
		return color.HiGreenString("●")
	}
	return color.HiYellowString("●")
}
