// Command sessmon is a sysop dashboard over a running BBS server's
// session store. Run alongside impulsed (or embedded in the same
// process via NewModel) to watch connections, idle times, and kick
// stragglers.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/stlalpha/impulse7/internal/session"
)

func main() {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "sessmon must be run interactively")
		os.Exit(1)
	}

	// Standalone runs operate on a fresh, empty store so the dashboard
	// can be exercised without a live impulsed process; embedding code
	// should call NewModel with the server's real *session.Store instead.
	store := session.NewStore(session.StoreConfig{})

	p := tea.NewProgram(NewModel(store), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
