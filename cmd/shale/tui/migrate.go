package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marshallshelly/shale-orm/pkg/loader"
	"github.com/marshallshelly/shale-orm/pkg/migration"
	"github.com/marshallshelly/shale-orm/pkg/runtime"
	"github.com/marshallshelly/shale-orm/pkg/schema"
)

// MigrateMode represents the current mode of the migration UI
type MigrateMode int

const (
	ModeList MigrateMode = iota
	ModeConfirm
	ModeExecuting
	ModeComplete
	ModeError
)

// MigrateModel is the main Bubbletea model for interactive migrations
type MigrateModel struct {
	mode         MigrateMode
	list         list.Model
	confirmation ConfirmationDialog
	progress     ProgressView
	logs         LogView
	err          error
	width        int
	height       int
	dbPath       string
	modelsPath   string
	schemas      []*schema.Schema
	status       []migration.ModelStatus
	db           *runtime.DB
	engine       *migration.Engine
	queue        []int
	failed       int
}

// NewMigrateModel creates a new migration UI model
func NewMigrateModel(dbPath, modelsPath string) MigrateModel {
	items := []list.Item{}
	delegate := ModelItemDelegate{}

	l := list.New(items, delegate, 0, 0)
	l.Title = "Model Schemas"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return MigrateModel{
		mode:       ModeList,
		list:       l,
		logs:       NewLogView(10),
		dbPath:     dbPath,
		modelsPath: modelsPath,
		queue:      []int{},
	}
}

// Init initializes the model
func (m MigrateModel) Init() tea.Cmd {
	return tea.Batch(
		loadModelsCmd(m.dbPath, m.modelsPath),
		tea.EnterAltScreen,
	)
}

// Messages
type modelsLoadedMsg struct {
	schemas []*schema.Schema
	status  []migration.ModelStatus
	db      *runtime.DB
	engine  *migration.Engine
}

type modelAppliedMsg struct {
	model string
	err   error
}

type errorMsg struct {
	err error
}

// Commands
func loadModelsCmd(dbPath, modelsPath string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		schemas, err := loader.LoadManifest(modelsPath)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to load models: %w", err)}
		}

		db, err := runtime.Open(dbPath)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to open database: %w", err)}
		}

		engine := migration.NewEngine(db)

		status, err := engine.Status(ctx, schemas)
		if err != nil {
			_ = db.Close()
			return errorMsg{err: fmt.Errorf("failed to get model status: %w", err)}
		}

		return modelsLoadedMsg{
			schemas: schemas,
			status:  status,
			db:      db,
			engine:  engine,
		}
	}
}

func applyModelCmd(engine *migration.Engine, sch *schema.Schema) tea.Cmd {
	return func() tea.Msg {
		results := engine.MigrateAll(context.Background(), []*schema.Schema{sch})
		return modelAppliedMsg{
			model: sch.Name(),
			err:   results[sch.Name()],
		}
	}
}

// applicable reports whether a model in the given status can be applied.
func applicable(status migration.Status) bool {
	return status == migration.StatusPending || status == migration.StatusDrifted
}

// Update handles messages
func (m MigrateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case modelsLoadedMsg:
		m.schemas = msg.schemas
		m.status = msg.status
		m.db = msg.db
		m.engine = msg.engine

		// Convert status to list items
		items := make([]list.Item, len(msg.status))
		for i, s := range msg.status {
			appliedAt := ""
			if !s.AppliedAt.IsZero() {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			items[i] = ModelItem{
				Name:      s.Model,
				Table:     s.Table,
				Status:    string(s.Status),
				AppliedAt: appliedAt,
			}
		}
		m.list.SetItems(items)

		return m, nil

	case modelAppliedMsg:
		if msg.err != nil {
			m.failed++
			m.logs.AddLog(errorStyle.Render("✗ Failed: " + msg.model + " - " + msg.err.Error()))
		} else {
			m.logs.AddLog(successStyle.Render("✓ Applied: " + msg.model))
		}
		m.progress.Current++

		// Check if we're done
		if m.progress.Current >= m.progress.Total {
			m.mode = ModeComplete
			return m, nil
		}

		// Apply the next queued model
		next := m.schemas[m.queue[m.progress.Current]]
		m.progress.Message = fmt.Sprintf("Applying: %s → %s", next.Name(), next.Table())

		return m, applyModelCmd(m.engine, next)

	case errorMsg:
		m.mode = ModeError
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeList:
			switch msg.String() {
			case "ctrl+c", "q":
				if m.db != nil {
					_ = m.db.Close()
				}
				return m, tea.Quit

			case "enter", " ":
				if len(m.status) == 0 {
					return m, nil
				}
				idx := m.list.Index()
				if !applicable(m.status[idx].Status) {
					return m, nil
				}

				m.queue = []int{idx}
				m.confirmation = NewConfirmationDialog(
					"Confirm Apply",
					fmt.Sprintf("Apply model %s to table %s?",
						m.status[idx].Model,
						m.status[idx].Table,
					),
				)
				m.mode = ModeConfirm
				return m, nil

			case "a":
				m.queue = nil
				for i, s := range m.status {
					if applicable(s.Status) {
						m.queue = append(m.queue, i)
					}
				}
				if len(m.queue) == 0 {
					return m, nil
				}

				m.confirmation = NewConfirmationDialog(
					"Confirm Apply All",
					fmt.Sprintf("Apply %d pending model(s)?", len(m.queue)),
				)
				m.mode = ModeConfirm
				return m, nil
			}

		case ModeConfirm:
			switch msg.String() {
			case "ctrl+c", "q", "esc":
				m.mode = ModeList
				return m, nil
			case "enter":
				if !m.confirmation.YesSelected {
					m.mode = ModeList
					return m, nil
				}

				first := m.schemas[m.queue[0]]
				m.mode = ModeExecuting
				m.failed = 0
				m.progress = ProgressView{
					Current: 0,
					Total:   len(m.queue),
					Message: fmt.Sprintf("Applying: %s → %s", first.Name(), first.Table()),
				}
				return m, applyModelCmd(m.engine, first)
			default:
				m.confirmation.Update(msg)
				return m, nil
			}

		case ModeComplete, ModeError:
			switch msg.String() {
			case "ctrl+c", "q", "enter":
				if m.db != nil {
					_ = m.db.Close()
				}
				return m, tea.Quit
			}
		}
	}

	// Update list
	if m.mode == ModeList {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the UI
func (m MigrateModel) View() string {
	switch m.mode {
	case ModeList:
		help := helpStyle.Render(
			FormatKey("↑/↓", "navigate") + " • " +
				FormatKey("enter", "apply") + " • " +
				FormatKey("a", "apply all") + " • " +
				FormatKey("q", "quit"),
		)
		return lipgloss.JoinVertical(lipgloss.Left,
			m.list.View(),
			help,
		)

	case ModeConfirm:
		return lipgloss.Place(
			m.width,
			m.height,
			lipgloss.Center,
			lipgloss.Center,
			m.confirmation.View(),
		)

	case ModeExecuting:
		return lipgloss.Place(
			m.width,
			m.height,
			lipgloss.Center,
			lipgloss.Center,
			lipgloss.JoinVertical(
				lipgloss.Left,
				m.progress.View(),
				"\n",
				m.logs.View(),
			),
		)

	case ModeComplete:
		summary := successStyle.Render(fmt.Sprintf("Applied %d model(s)", m.progress.Total-m.failed))
		if m.failed > 0 {
			summary += "\n" + dangerStyle.Render(fmt.Sprintf("%d model(s) failed", m.failed))
		}
		msg := titleStyle.Render("Migration Complete") + "\n\n" +
			summary + "\n\n" +
			helpStyle.Render(FormatKey("enter/q", "exit"))

		return lipgloss.Place(
			m.width,
			m.height,
			lipgloss.Center,
			lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Center,
				boxStyle.Render(msg),
				m.logs.View(),
			),
		)

	case ModeError:
		msg := titleStyle.Render("Migration Failed") + "\n\n" +
			errorStyle.Render(m.err.Error()) + "\n\n" +
			helpStyle.Render(FormatKey("enter/q", "exit"))

		return lipgloss.Place(
			m.width,
			m.height,
			lipgloss.Center,
			lipgloss.Center,
			boxStyle.Render(msg),
		)
	}

	return "Unknown mode"
}

// RunMigrateUI starts the interactive migration UI
func RunMigrateUI(dbPath, modelsPath string) error {
	p := tea.NewProgram(NewMigrateModel(dbPath, modelsPath))
	_, err := p.Run()
	return err
}
