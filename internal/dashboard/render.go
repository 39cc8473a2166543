package dashboard

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/stellarlinkco/wamonitor/internal/stats"
)

const (
	Title          = "📲 WhatsApp Group Monitor"
	HeadingStats   = "📊 Estatísticas Gerais"
	HeadingSenders = "🚀 Disparos de Mensagem por Participante"
	HeadingHourly  = "📈 Atividade por Hora"
	HeadingTop     = "👥 Top Participantes"
	HeadingRecent  = "💬 Mensagens Recentes"
)

const barWidth = 30

// Render writes the terminal view of snap to w.
func Render(w io.Writer, snap Snapshot) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", Title)
	fmt.Fprintf(&b, "%s  (%s)\n\n", snap.Source, snap.GeneratedAt.Format("15:04:05"))
	if snap.Error != "" {
		fmt.Fprintf(&b, "! %s\n\n", snap.Error)
	}

	fmt.Fprintf(&b, "%s\n", HeadingStats)
	if snap.Empty() {
		fmt.Fprintf(&b, "%s\n\n", EmptyWarning)
	} else {
		renderMetrics(&b, snap.Summary)
		renderSenders(&b, snap.Summary.TopSenders)
		if snap.Summary.HasHourly {
			renderHourly(&b, snap.Summary.Hourly)
		}
	}

	fmt.Fprintf(&b, "%s\n", HeadingRecent)
	if len(snap.Summary.Recent) == 0 {
		fmt.Fprintf(&b, "%s\n", EmptyFeed)
	}
	for _, e := range snap.Summary.Recent {
		fmt.Fprintf(&b, "%s%s (%s)\n    %s\n", e.Prefix, e.Sender, e.TimeLabel, e.Body)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderMetrics(b *strings.Builder, s stats.Summary) {
	tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total de Mensagens\tMensagens de Grupo\tMensagens Diretas\tParticipantes Únicos\n")
	fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", s.Total, s.Group, s.Direct, s.UniqueSenders)
	_ = tw.Flush()
	b.WriteString("\n")
}

func renderSenders(b *strings.Builder, top []stats.SenderCount) {
	if len(top) == 0 {
		return
	}

	fmt.Fprintf(b, "%s\n", HeadingSenders)
	peak := top[0].Count
	tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', 0)
	for _, sc := range top {
		fmt.Fprintf(tw, "  %s\t%s %d\n", sc.Name, bar(sc.Count, peak), sc.Count)
	}
	_ = tw.Flush()
	b.WriteString("\n")

	fmt.Fprintf(b, "%s\n", HeadingTop)
	tw = tabwriter.NewWriter(b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  #\tParticipante\tMensagens\n")
	for i, sc := range top {
		fmt.Fprintf(tw, "  %d\t%s\t%d\n", i+1, sc.Name, sc.Count)
	}
	_ = tw.Flush()
	b.WriteString("\n")
}

func renderHourly(b *strings.Builder, h stats.Histogram) {
	fmt.Fprintf(b, "%s\n", HeadingHourly)
	_, peak := h.Peak()
	for hour, c := range h {
		fmt.Fprintf(b, "  %02dh %s %d\n", hour, bar(c, peak), c)
	}
	b.WriteString("\n")
}

func bar(n, peak int) string {
	if n <= 0 || peak <= 0 {
		return ""
	}
	width := n * barWidth / peak
	if width == 0 {
		width = 1
	}
	return strings.Repeat("█", width)
}
