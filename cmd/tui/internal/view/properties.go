package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/propledger/internal/property"
)

type propertiesState int

const (
	propertiesStateBrowse propertiesState = iota
	propertiesStateCreate
)

type PropertiesModel struct {
	CommonModel
	propertyService *property.Service
	// userID is uuid.Nil when the client is not scoped to a member.
	userID uuid.UUID

	state   propertiesState
	table   table.Model
	props   []*property.Property
	form    *huh.Form
	loading bool
	err     error
	status  string
}

func NewPropertiesModel(propertySvc *property.Service, userID uuid.UUID) PropertiesModel {
	columns := []table.Column{
		{Title: "Name", Width: 30},
		{Title: "Address", Width: 40},
		{Title: "Created", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return PropertiesModel{
		propertyService: propertySvc,
		userID:          userID,
		table:           t,
		loading:         true,
	}
}

func (m PropertiesModel) Title() string { return "Properties" }

func (m PropertiesModel) ShortHelp() string {
	if m.state == propertiesStateCreate {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | Enter: select | n: new property | r: refresh"
}

func (m PropertiesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m PropertiesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadPropertiesMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.props = msg.props
		m.refreshTable()

		return m, nil

	case propertyCreatedMsg:
		m.state = propertiesStateBrowse
		m.form = nil
		m.table.Focus()

		if msg.err != nil {
			m.status = fmt.Sprintf("Error creating property: %v", msg.err)
			return m, nil
		}

		m.status = fmt.Sprintf("Created %s.", msg.prop.Name)

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if m.state == propertiesStateCreate {
		return m.updateCreate(msg)
	}

	return m.updateBrowse(msg)
}

func (m PropertiesModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "n":
			return m.enterCreateMode()
		case "enter":
			idx := m.table.Cursor()
			if idx < 0 || idx >= len(m.props) {
				return m, nil
			}

			p := m.props[idx]

			return m, func() tea.Msg { return PropertySelectedMsg{ID: p.ID, Name: p.Name} }
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m PropertiesModel) enterCreateMode() (tea.Model, tea.Cmd) {
	if m.userID == uuid.Nil {
		m.status = "Set TUI_USER_ID to create properties."
		return m, nil
	}

	var name, address string

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("name").
				Title("Name").
				Value(&name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name cannot be empty")
					}

					return nil
				}),

			huh.NewInput().
				Key("address").
				Title("Address").
				Placeholder("optional").
				Value(&address),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = propertiesStateCreate
	m.table.Blur()

	return m, m.form.Init()
}

func (m PropertiesModel) updateCreate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = propertiesStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.createCmd()
}

func (m PropertiesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading properties...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	content := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	if len(m.props) == 0 {
		content = lipgloss.NewStyle().Faint(true).Render("No properties yet. Press n to add one.") + "\n" + content
	}

	if m.state == propertiesStateCreate && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render("New Property\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *PropertiesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.props))
	for _, p := range m.props {
		created := p.CreatedAt
		rows = append(rows, table.Row{p.Name, deref(p.Address), FormatDate(&created)})
	}

	m.table.SetRows(rows)
}

// Messages

type loadPropertiesMsg struct {
	props []*property.Property
	err   error
}

type propertyCreatedMsg struct {
	prop *property.Property
	err  error
}

func (m PropertiesModel) loadCmd() tea.Cmd {
	var filter property.ListFilter
	if m.userID != uuid.Nil {
		userID := m.userID
		filter.MemberID = &userID
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		props, err := m.propertyService.List(ctx, filter)

		return loadPropertiesMsg{props: props, err: err}
	}
}

func (m PropertiesModel) createCmd() tea.Cmd {
	// Read through the form: bound values live in the copy that built it.
	params := property.CreateParams{Name: m.form.GetString("name")}
	if addr := strings.TrimSpace(m.form.GetString("address")); addr != "" {
		params.Address = &addr
	}

	ownerID := m.userID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		p, err := m.propertyService.Create(ctx, ownerID, params)

		return propertyCreatedMsg{prop: p, err: err}
	}
}
