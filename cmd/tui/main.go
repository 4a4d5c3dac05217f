package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/propledger/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/propledger/internal/config"
	"github.com/MrJamesThe3rd/propledger/internal/database"
	"github.com/MrJamesThe3rd/propledger/internal/importer"
	"github.com/MrJamesThe3rd/propledger/internal/logging"
	"github.com/MrJamesThe3rd/propledger/internal/property"
	propertyStore "github.com/MrJamesThe3rd/propledger/internal/property/store"
	"github.com/MrJamesThe3rd/propledger/internal/transaction"
	txStore "github.com/MrJamesThe3rd/propledger/internal/transaction/store"
)

type model struct {
	txService       *transaction.Service
	propertyService *property.Service
	importService   *importer.Service
	userID          uuid.UUID

	currentView View
	propertyID  uuid.UUID
	property    string
	notice      string

	propertiesView   view.PropertiesModel
	importView       view.ImportModel
	transactionsView view.TransactionsModel
}

type View int

const (
	ViewMenu         View = 0
	ViewProperties   View = 1
	ViewImport       View = 2
	ViewTransactions View = 3
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Warnings and errors only, on stderr.
	slog.SetDefault(logging.New(os.Stderr, "warn", cfg.Log.Format))

	db, err := database.New(context.Background(), cfg.ConnectionString(), database.PoolOptions{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var userID uuid.UUID

	if cfg.TUI.UserID != "" {
		userID, err = uuid.Parse(cfg.TUI.UserID)
		if err != nil {
			slog.Error("TUI_USER_ID is not a uuid", "error", err)
			os.Exit(1)
		}
	}

	txSvc := transaction.NewService(txStore.New(db))
	propSvc := property.NewService(propertyStore.New(db))

	return model{
		txService:       txSvc,
		propertyService: propSvc,
		importService:   importer.NewService(txSvc, nil),
		userID:          userID,
		currentView:     ViewMenu,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			return m.updateMenu(msg)
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	case view.PropertySelectedMsg:
		m.propertyID = msg.ID
		m.property = msg.Name
		m.notice = ""
		m.currentView = ViewMenu

		return m, nil
	}

	switch m.currentView {
	case ViewProperties:
		var newModel tea.Model
		newModel, cmd = m.propertiesView.Update(msg)
		m.propertiesView = newModel.(view.PropertiesModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewTransactions:
		var newModel tea.Model
		newModel, cmd = m.transactionsView.Update(msg)
		m.transactionsView = newModel.(view.TransactionsModel)
	}

	return m, cmd
}

func (m model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "1":
		m.currentView = ViewProperties
		m.propertiesView = view.NewPropertiesModel(m.propertyService, m.userID)

		return m, m.propertiesView.Init()
	case "2", "3":
		if m.propertyID == uuid.Nil {
			m.notice = "Select a property first."
			return m, nil
		}

		if msg.String() == "2" {
			m.currentView = ViewImport
			m.importView = view.NewImportModel(m.importService, m.propertyID, m.property)

			return m, m.importView.Init()
		}

		m.currentView = ViewTransactions
		m.transactionsView = view.NewTransactionsModel(m.txService, m.propertyID, m.property)

		return m, m.transactionsView.Init()
	}

	return m, nil
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		current := "none"
		if m.propertyID != uuid.Nil {
			current = m.property
		}

		menu := fmt.Sprintf("PropLedger\n\nProperty: %s\n\n", current) +
			"1. Select or Add Property\n" +
			"2. Import Transactions\n" +
			"3. Browse Transactions\n\n" +
			"q. Quit"

		if m.notice != "" {
			menu += "\n\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.notice)
		}

		return lipgloss.NewStyle().Padding(2).Render(menu)
	case ViewProperties:
		return m.propertiesView.View()
	case ViewImport:
		return m.importView.View()
	case ViewTransactions:
		return m.transactionsView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
