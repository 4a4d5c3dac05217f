package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/propledger/internal/transaction"
)

const txPageSize = 10

type txState int

const (
	txStateList txState = iota
	txStateSummary
)

// txItem wraps a transaction to implement list.Item.
type txItem struct {
	tx *transaction.Transaction
}

func (i txItem) Title() string {
	typ := lipgloss.NewStyle().Faint(true).Render(fmt.Sprintf("[%s]", i.tx.Type))

	amount := FormatAmount(i.tx.Amount)
	if i.tx.Type == transaction.TypeExpense {
		amount = "-" + amount
	}

	return fmt.Sprintf("%s  %s %s  %s  %s",
		FormatDate(i.tx.Date), amount, i.tx.CurrencyCode(), typ, deref(i.tx.Counterparty))
}

func (i txItem) Description() string {
	parts := make([]string, 0, 2)

	if c := deref(i.tx.Category); c != "" {
		parts = append(parts, c)
	}

	if d := deref(i.tx.Description); d != "" {
		parts = append(parts, d)
	}

	return strings.Join(parts, " · ")
}

func (i txItem) FilterValue() string {
	return deref(i.tx.Counterparty) + " " + deref(i.tx.Description)
}

type TransactionsModel struct {
	CommonModel
	txService    *transaction.Service
	propertyID   uuid.UUID
	propertyName string

	state   txState
	list    list.Model
	summary table.Model
	page    int
	total   int
	loading bool
	status  string
}

func NewTransactionsModel(txSvc *transaction.Service, propertyID uuid.UUID, propertyName string) TransactionsModel {
	l := list.New([]list.Item{}, txItemDelegate{}, 80, 24)
	l.Title = "Transactions: " + propertyName
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	summary := table.New(
		table.WithColumns([]table.Column{
			{Title: "Month", Width: 10},
			{Title: "Currency", Width: 8},
			{Title: "Income", Width: 14},
			{Title: "Expenses", Width: 14},
			{Title: "Net", Width: 14},
		}),
		table.WithHeight(15),
	)

	return TransactionsModel{
		txService:    txSvc,
		propertyID:   propertyID,
		propertyName: propertyName,
		list:         l,
		summary:      summary,
		page:         1,
		loading:      true,
	}
}

func (m TransactionsModel) Title() string { return "Transactions" }

func (m TransactionsModel) ShortHelp() string {
	if m.state == txStateSummary {
		return "Esc: back | s: list"
	}

	return "Esc: back | n/p: next/prev page | s: monthly summary | /: filter"
}

func (m TransactionsModel) Init() tea.Cmd {
	return m.loadPageCmd(m.page)
}

func (m TransactionsModel) totalPages() int {
	return max(1, (m.total+txPageSize-1)/txPageSize)
}

func (m TransactionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadPageMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.page = msg.page
		m.total = msg.total
		m.refreshListItems(msg.txs)

		m.status = ""
		if msg.total == 0 {
			m.status = "No transactions found."
		}

		return m, nil

	case loadSummaryMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.refreshSummary(msg.totals)

		return m, nil

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)

		return m, cmd
	}

	switch keyMsg.String() {
	case "esc":
		if m.list.FilterState() == list.FilterApplied {
			m.list.ResetFilter()
			return m, nil
		}

		return m, Back
	case "s":
		if m.state == txStateSummary {
			m.state = txStateList
			return m, nil
		}

		m.state = txStateSummary
		m.loading = true

		return m, m.loadSummaryCmd()
	case "n":
		if m.state == txStateList && m.page < m.totalPages() {
			m.loading = true
			return m, m.loadPageCmd(m.page + 1)
		}

		return m, nil
	case "p":
		if m.state == txStateList && m.page > 1 {
			m.loading = true
			return m, m.loadPageCmd(m.page - 1)
		}

		return m, nil
	}

	var cmd tea.Cmd
	if m.state == txStateSummary {
		m.summary, cmd = m.summary.Update(msg)
	} else {
		m.list, cmd = m.list.Update(msg)
	}

	return m, cmd
}

func (m TransactionsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading...")
	}

	var body string

	if m.state == txStateSummary {
		body = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render("Monthly summary: "+m.propertyName),
			lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240")).
				Render(m.summary.View()),
		)
	} else {
		footer := lipgloss.NewStyle().Faint(true).
			Render(fmt.Sprintf("Page %d of %d (%d transactions)", m.page, m.totalPages(), m.total))
		body = lipgloss.JoinVertical(lipgloss.Left, m.list.View(), footer)
	}

	if m.status != "" {
		body = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + body
	}

	return lipgloss.NewStyle().Padding(1).Render(body)
}

func (m *TransactionsModel) refreshListItems(txs []*transaction.Transaction) {
	items := make([]list.Item, len(txs))
	for i, tx := range txs {
		items[i] = txItem{tx: tx}
	}

	m.list.SetItems(items)
	m.list.ResetSelected()
}

func (m *TransactionsModel) refreshSummary(totals []transaction.MonthTotal) {
	rows := make([]table.Row, len(totals))
	for i, t := range totals {
		rows[i] = table.Row{
			t.Month,
			t.Currency,
			FormatAmount(t.Income),
			FormatAmount(t.Expenses),
			FormatAmount(t.Income.Sub(t.Expenses)),
		}
	}

	m.summary.SetRows(rows)
	m.summary.Focus()
}

// Messages

type loadPageMsg struct {
	txs   []*transaction.Transaction
	page  int
	total int
	err   error
}

type loadSummaryMsg struct {
	totals []transaction.MonthTotal
	err    error
}

func (m TransactionsModel) loadPageCmd(page int) tea.Cmd {
	propertyID := m.propertyID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.txService.List(ctx, transaction.ListFilter{
			PropertyID: &propertyID,
			Limit:      txPageSize,
			Offset:     (page - 1) * txPageSize,
		})
		if err != nil {
			return loadPageMsg{err: err}
		}

		total, err := m.txService.Count(ctx, propertyID)
		if err != nil {
			return loadPageMsg{err: err}
		}

		return loadPageMsg{txs: txs, page: page, total: total}
	}
}

func (m TransactionsModel) loadSummaryCmd() tea.Cmd {
	propertyID := m.propertyID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		totals, err := m.txService.MonthlySummary(ctx, propertyID)

		return loadSummaryMsg{totals: totals, err: err}
	}
}

// txItemDelegate renders items in the list.
type txItemDelegate struct{}

func (d txItemDelegate) Height() int                             { return 2 }
func (d txItemDelegate) Spacing() int                            { return 0 }
func (d txItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d txItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(txItem)
	if !ok {
		return
	}

	title := i.Title()
	if index == m.Index() {
		title = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Render("> " + title)
	}

	fmt.Fprintf(w, "  %s\n", title)

	desc := i.Description()
	if desc == "" {
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "    %s\n", lipgloss.NewStyle().Faint(true).Render(desc))
}
