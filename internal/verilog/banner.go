package verilog

import (
	"strings"
	"text/template"
	"time"
)

const dateLayout = "2006-01-02 15:04:05"

var separatorLine = "//" + strings.Repeat("-", 78) + "\n"

var bannerTemplate = template.Must(template.New("banner").Parse(`// -----------------------------------------------------------------------------
// Auto-Generated by fhdl
//
// Filename   : {{.Name}}.v
// Device     : {{.Device}}
// Revision   : {{.Revision}}
// Date       : {{.Date}}
//------------------------------------------------------------------------------

`))

var trailerTemplate = template.Must(template.New("trailer").Parse(`
// -----------------------------------------------------------------------------
//  Auto-Generated by fhdl on {{.Date}}.
//------------------------------------------------------------------------------
`))

type bannerData struct {
	Name     string
	Device   string
	Revision string
	Date     string
}

func newBannerData(name, device, revision string, now time.Time) bannerData {
	if device == "" {
		device = "Unknown"
	}
	if revision == "" {
		revision = "unknown"
	}
	return bannerData{Name: name, Device: device, Revision: revision, Date: now.Format(dateLayout)}
}

func printBanner(b *strings.Builder, data bannerData) error {
	return bannerTemplate.Execute(b, data)
}

func printTrailer(b *strings.Builder, data bannerData) error {
	return trailerTemplate.Execute(b, data)
}

func printSeparator(b *strings.Builder, msg string) {
	b.WriteString("\n")
	b.WriteString(separatorLine)
	b.WriteString("// " + msg + "\n")
	b.WriteString(separatorLine)
	b.WriteString("\n")
}
