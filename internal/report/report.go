// Package report renders a finished capture as a Markdown document and as
// HTML.
package report

import (
	"bytes"
	"fmt"
	"time"

	"PcapSpectra/internal/assembler"
	"PcapSpectra/internal/model"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Options selects what goes into a report.
type Options struct {
	TopConversations int
	// Timeline is rendered as a table when non-empty.
	Timeline         []model.TimeBin
	TimelineInterval time.Duration
}

// Markdown renders the capture.
func Markdown(c *model.Capture, opts Options) []byte {
	s := assembler.Summarize(c, opts.TopConversations)
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Traffic report: %s\n\n", escape(c.Name))
	fmt.Fprintf(&b, "- Capture ID: `%s`\n", s.CaptureID)
	fmt.Fprintf(&b, "- Analyzed at: %s\n", c.AnalyzedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Packets: %d\n", s.TotalPackets)
	fmt.Fprintf(&b, "- Bytes: %s\n", formatBytes(s.TotalBytes))
	fmt.Fprintf(&b, "- Conversations: %d\n", s.TotalFlows)
	if c.Result.PacketCount > 0 {
		fmt.Fprintf(&b, "- First packet: %s\n", c.Result.StartTime.UTC().Format(time.RFC3339Nano))
		fmt.Fprintf(&b, "- Last packet: %s\n", c.Result.EndTime.UTC().Format(time.RFC3339Nano))
		fmt.Fprintf(&b, "- Duration: %s\n", c.Result.Duration())
	}

	b.WriteString("\n## Protocol distribution\n\n")
	if len(s.ProtocolDistribution) == 0 {
		b.WriteString("No IP traffic.\n")
	} else {
		b.WriteString("| Protocol | Packets | Bytes | Share |\n|---|---:|---:|---:|\n")
		for _, p := range s.ProtocolDistribution {
			fmt.Fprintf(&b, "| %s | %d | %s | %.2f%% |\n", escape(p.Protocol), p.PacketCount, formatBytes(p.Bytes), p.Percentage)
		}
	}

	fmt.Fprintf(&b, "\n## Top %d conversations\n\n", len(s.TopConversations))
	if len(s.TopConversations) > 0 {
		b.WriteString("| Endpoint A | Endpoint B | Protocol | Packets | Bytes | Duration |\n|---|---|---|---:|---:|---:|\n")
		for _, conv := range s.TopConversations {
			fmt.Fprintf(&b, "| %s | %s | %s | %d | %s | %s |\n",
				endpoint(conv.SrcIP, conv.SrcPort), endpoint(conv.DstIP, conv.DstPort), escape(conv.Protocol),
				conv.PacketCount, formatBytes(conv.TotalBytes), time.Duration(conv.DurationMs)*time.Millisecond)
		}
	}

	fmt.Fprintf(&b, "\n## Hosts (%d)\n\n", len(s.UniqueHosts))
	for _, h := range s.UniqueHosts {
		fmt.Fprintf(&b, "- %s\n", endpoint(h.IP, h.Port))
	}

	if len(opts.Timeline) > 0 {
		fmt.Fprintf(&b, "\n## Timeline (%s bins)\n\n", opts.TimelineInterval)
		b.WriteString("| Bin start | Packets | Bytes |\n|---|---:|---:|\n")
		for _, bin := range opts.Timeline {
			fmt.Fprintf(&b, "| %s | %d | %s |\n", bin.Timestamp.UTC().Format(time.RFC3339), bin.PacketCount, formatBytes(bin.Bytes))
		}
	}

	return b.Bytes()
}

// HTML renders Markdown output as a complete HTML page.
func HTML(title string, md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(md, p, renderer)
}

func endpoint(ip string, port uint16) string {
	if port == 0 {
		return escape(ip)
	}
	return fmt.Sprintf("%s:%d", escape(ip), port)
}

// escape keeps table cells intact.
func escape(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '|', '*', '_', '`', '[', ']', '<', '>':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
