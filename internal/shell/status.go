package shell

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/dbbuddy/internal/session"
)

var (
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

// renderStatus formats a session status as a bordered panel.
func renderStatus(st session.Status) string {
	terms := "None"
	if len(st.SearchTerms) > 0 {
		terms = strings.Join(st.SearchTerms, ", ")
	}
	rows := [][2]string{
		{"Databases", st.Databases},
		{"Out format", st.OutFormat},
		{"Search terms", terms},
		{"Full records", fmt.Sprint(st.Full)},
		{"Partial records", fmt.Sprint(st.Partial)},
		{"Accessions only", fmt.Sprint(st.AccessionOnly)},
		{"Filtered out", fmt.Sprint(st.FilteredOut)},
		{"Failures", fmt.Sprint(st.Failures)},
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%-16s", r[0]+":"))+" "+r[1])
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (sh *Shell) printStatus() {
	fmt.Fprintln(sh.out, renderStatus(sh.sess.Status()))
}
