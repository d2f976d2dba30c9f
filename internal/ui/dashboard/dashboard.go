// Package dashboard implements the `dash` command's terminal UI: a
// live view of fleet health and recent domain events, grounded on the
// teacher's bubbletea wizard screens (internal/ui/wizard).
package dashboard

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/eventbus"
	"github.com/chimera-systems/chimera/internal/registry"
)

var (
	healthyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	degradedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	unreachableStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	subtleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model renders one refresh of the fleet dashboard.
type Model struct {
	reg     *registry.Registry
	bus     *eventbus.Bus
	targets []domain.Node
}

// NewModel constructs a dashboard Model.
func NewModel(reg *registry.Registry, bus *eventbus.Bus, targets []domain.Node) Model {
	return Model{reg: reg, bus: bus, targets: targets}
}

// Init starts the periodic refresh tick.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update advances the model on a tick or quits on q/ctrl+c.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		return m, tick()
	}
	return m, nil
}

// View renders the current fleet-health table and recent event feed.
func (m Model) View() string {
	out := titleStyle.Render("chimera fleet") + "\n\n"

	entries := m.reg.All()
	for _, node := range m.targets {
		entry, found := entries[node.ID()]
		out += fmt.Sprintf("  %-24s %s\n", node.ID(), healthLabel(found, entry.Health))
	}

	out += "\n" + titleStyle.Render("recent events") + "\n"
	published := m.bus.Published()
	start := 0
	if len(published) > 10 {
		start = len(published) - 10
	}
	for _, event := range published[start:] {
		out += fmt.Sprintf("  %s %s\n", subtleStyle.Render(event.OccurredAt().Format(time.RFC3339)), event.EventType())
	}

	out += "\n" + subtleStyle.Render("press q to quit")
	return out
}

func healthLabel(found bool, health registry.Health) string {
	if !found {
		return subtleStyle.Render("UNKNOWN")
	}
	switch health {
	case registry.HealthHealthy:
		return healthyStyle.Render(string(health))
	case registry.HealthDegraded:
		return degradedStyle.Render(string(health))
	default:
		return unreachableStyle.Render(string(health))
	}
}

// Run starts the dashboard's bubbletea event loop until the user quits
// or ctx is cancelled.
func Run(ctx context.Context, reg *registry.Registry, bus *eventbus.Bus, targets []domain.Node) error {
	program := tea.NewProgram(NewModel(reg, bus, targets), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}
