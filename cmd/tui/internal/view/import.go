package view

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/propledger/internal/importer"
)

const importTimeout = 2 * time.Minute

// maxListedErrors bounds the row errors printed under the preview.
const maxListedErrors = 8

type importState int

const (
	importStateFilePick importState = iota
	importStateLoading
	importStatePreview
	importStateResult
)

type ImportModel struct {
	CommonModel
	importService *importer.Service
	propertyID    uuid.UUID
	propertyName  string

	state      importState
	filePicker filepicker.Model
	preview    table.Model

	fileName string
	data     []byte
	result   *importer.Result

	status string
	err    error
}

func NewImportModel(impSvc *importer.Service, propertyID uuid.UUID, propertyName string) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt", ".xlsx", ".xls"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Type", Width: 8},
		{Title: "Amount", Width: 12},
		{Title: "Category", Width: 16},
		{Title: "Payee/Payer", Width: 20},
		{Title: "Description", Width: 30},
	}

	return ImportModel{
		importService: impSvc,
		propertyID:    propertyID,
		propertyName:  propertyName,
		filePicker:    fp,
		preview:       table.New(table.WithColumns(columns), table.WithHeight(12)),
	}
}

func (m ImportModel) Title() string { return "Import Transactions" }

func (m ImportModel) ShortHelp() string {
	if m.state == importStatePreview {
		return "c: commit | Esc: pick another file"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStatePreview {
			return m.updatePreview(msg)
		}

	case previewResultMsg:
		m.result = msg.result

		if msg.err != nil {
			m.state = importStateResult
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.state = importStatePreview
		m.refreshPreview()

		return m, nil

	case commitResultMsg:
		m.state = importStateResult
		m.result = msg.result

		if msg.err != nil {
			m.err = msg.err
			m.status = commitFailure(msg.err, msg.result)

			return m, nil
		}

		m.status = fmt.Sprintf("Imported %d transactions into %s.", msg.result.Inserted, m.propertyName)
		if msg.result.Archived != "" {
			m.status += fmt.Sprintf("\nArchived as %s.", msg.result.Archived)
		}

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		data, err := os.ReadFile(path)
		if err != nil {
			m.state = importStateResult
			m.err = err
			m.status = fmt.Sprintf("Error: %v", err)

			return m, nil
		}

		m.fileName = filepath.Base(path)
		m.data = data
		m.state = importStateLoading
		m.status = fmt.Sprintf("Reading %s...", m.fileName)

		return m, m.runCmd(importer.ModePreview)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStatePreview, importStateResult:
		m.state = importStateFilePick
		m.err = nil
		m.status = ""
		m.result = nil
		m.data = nil

		return m, m.filePicker.Init()
	}

	return m, Back
}

func (m ImportModel) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "c" {
		if m.result != nil && len(m.result.Errors) > 0 {
			m.status = "Fix the listed rows before committing."
			return m, nil
		}

		m.state = importStateLoading
		m.status = fmt.Sprintf("Importing %s...", m.fileName)

		return m, m.runCmd(importer.ModeImport)
	}

	var cmd tea.Cmd
	m.preview, cmd = m.preview.Update(msg)

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select a CSV or Excel file to import into %s:\n\n%s", m.propertyName, m.filePicker.View()),
		)
	case importStateLoading:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStatePreview:
		return m.viewPreview()
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewPreview() string {
	res := m.result

	header := fmt.Sprintf("%s: %d valid rows, %d errors", m.fileName, res.Valid, len(res.Errors))
	if res.Valid > len(res.Preview) {
		header += fmt.Sprintf(" (showing first %d)", len(res.Preview))
	}

	parts := []string{
		lipgloss.NewStyle().Bold(true).Render(header),
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.preview.View()),
	}

	if len(res.Errors) > 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(formatErrors(res.Errors)))
	}

	if m.status != "" {
		parts = append(parts, lipgloss.NewStyle().Faint(true).Render(m.status))
	}

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m ImportModel) viewResult() string {
	color := lipgloss.Color("46")
	if m.err != nil {
		color = lipgloss.Color("196")
	}

	body := lipgloss.NewStyle().Foreground(color).Render(m.status)

	if m.err != nil && m.result != nil && len(m.result.Errors) > 0 {
		body += "\n\n" + formatErrors(m.result.Errors)
	}

	return lipgloss.NewStyle().Padding(2).Render(body + "\n\n(Esc to go back)")
}

func (m *ImportModel) refreshPreview() {
	rows := make([]table.Row, 0, len(m.result.Preview))
	for _, r := range m.result.Preview {
		date := "-"
		if r.Date != nil {
			date = (*r.Date)[:len(time.DateOnly)]
		}

		rows = append(rows, table.Row{
			date,
			r.Type,
			fmt.Sprintf("%.2f", r.Amount),
			deref(r.Category),
			deref(r.Counterparty),
			deref(r.Description),
		})
	}

	m.preview.SetRows(rows)
	m.preview.Focus()
}

func formatErrors(errs []importer.ValidationError) string {
	var sb strings.Builder

	for i, e := range errs {
		if i == maxListedErrors {
			fmt.Fprintf(&sb, "... and %d more\n", len(errs)-i)
			break
		}

		if e.Row == 0 {
			fmt.Fprintf(&sb, "%s\n", e.Message)
			continue
		}

		fmt.Fprintf(&sb, "Row %d: %s\n", e.Row, e.Message)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func commitFailure(err error, res *importer.Result) string {
	switch {
	case errors.Is(err, importer.ErrPersist) && res != nil:
		return fmt.Sprintf("Import stopped after %d rows: %v", res.Inserted, err)
	case errors.Is(err, importer.ErrValidation):
		return "Validation failed"
	}

	return fmt.Sprintf("Error: %v", err)
}

// Messages

type previewResultMsg struct {
	result *importer.Result
	err    error
}

type commitResultMsg struct {
	result *importer.Result
	err    error
}

func (m ImportModel) runCmd(mode importer.Mode) tea.Cmd {
	req := importer.Request{
		PropertyID: m.propertyID,
		FileName:   m.fileName,
		Data:       m.data,
		Mode:       mode,
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		res, err := m.importService.Run(ctx, req)

		if mode == importer.ModePreview {
			return previewResultMsg{result: res, err: err}
		}

		return commitResultMsg{result: res, err: err}
	}
}
