package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/atinyakov/gophtodo/internal/controller"
	"github.com/atinyakov/gophtodo/internal/models"
)

var (
	loginLabels    = []string{"Username", "Password"}
	registerLabels = []string{"Username", "Email", "Password", "Confirm Password"}
)

func (m *Model) showLogin(callback string) {
	m.screen = screenLogin
	m.callback = callback
	m.setFields(loginLabels, 1)
}

func (m *Model) showRegister() {
	m.screen = screenRegister
	m.callback = ""
	m.setFields(registerLabels, 2, 3)
}

// setFields builds one input per label; the fields at secret are masked.
func (m *Model) setFields(labels []string, secret ...int) {
	m.fields = make([]textinput.Model, len(labels))
	for i, label := range labels {
		m.fields[i] = newInput(label)
	}
	for _, i := range secret {
		m.fields[i].EchoMode = textinput.EchoPassword
		m.fields[i].EchoCharacter = '•'
	}
	m.focus = 0
	m.fields[0].Focus()
	m.formErr = ""
}

func (m *Model) focusNext(delta int) {
	m.fields[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.fields)) % len(m.fields)
	m.fields[m.focus].Focus()
}

func (m *Model) updateForm(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			m.focusNext(1)
			return nil
		case "shift+tab", "up":
			m.focusNext(-1)
			return nil
		case "ctrl+r":
			if m.screen == screenLogin {
				return m.navigate("/register")
			}
			return m.navigate("/login")
		case "esc":
			if m.screen == screenRegister {
				return m.navigate("/login")
			}
			return nil
		case "enter":
			return m.submit()
		}
	}
	var cmd tea.Cmd
	m.fields[m.focus], cmd = m.fields[m.focus].Update(msg)
	return cmd
}

func (m *Model) submit() tea.Cmd {
	m.busy = true
	m.formErr = ""
	ctx := m.ctx

	if m.screen == screenLogin {
		form := controller.NewLoginForm(m.store, m.callback)
		creds := models.Credentials{Username: m.fields[0].Value(), Password: m.fields[1].Value()}
		return func() tea.Msg {
			err := form.Submit(ctx, creds, m.jar)
			return authDoneMsg{err: err, message: form.Message(), dest: form.Destination()}
		}
	}

	form := controller.NewRegisterForm(m.store)
	in := controller.RegisterInput{
		Username:        m.fields[0].Value(),
		Email:           m.fields[1].Value(),
		Password:        m.fields[2].Value(),
		ConfirmPassword: m.fields[3].Value(),
	}
	return func() tea.Msg {
		err := form.Submit(ctx, in, m.jar)
		return authDoneMsg{err: err, message: form.Message(), dest: "/todos"}
	}
}

func (m *Model) updateTodos(msg tea.Msg) tea.Cmd {
	if m.adding {
		return m.updateAdding(msg, m.todos.Create)
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	todos := m.todos.Todos()
	valid := m.cursor < len(todos)

	switch key.String() {
	case "up", "k":
		m.move(-1, len(todos))
	case "down", "j":
		m.move(1, len(todos))
	case "n":
		m.adding = true
		m.startInput("New todo name...", "")
	case "enter":
		if valid {
			return m.navigate(fmt.Sprintf("/todos/%d", todos[m.cursor].ID))
		}
	case "d":
		if valid {
			id := todos[m.cursor].ID
			return m.run(func(ctx context.Context) error { return m.todos.Delete(ctx, id) })
		}
	case "r":
		return m.navigate("/todos")
	case "tab":
		return m.navigate("/dashboard")
	}
	return nil
}

func (m *Model) updateDetail(msg tea.Msg) tea.Cmd {
	if m.adding {
		return m.updateAdding(msg, m.detail.AddItem)
	}
	if _, _, editing := m.detail.Editing(); editing {
		return m.updateEditing(msg)
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	items := m.detail.Items()
	valid := m.cursor < len(items)

	switch key.String() {
	case "up", "k":
		m.move(-1, len(items))
	case "down", "j":
		m.move(1, len(items))
	case "n":
		m.adding = true
		m.startInput("New item...", "")
	case " ", "space":
		if valid {
			id := items[m.cursor].ID
			return m.run(func(ctx context.Context) error { return m.detail.Toggle(ctx, id) })
		}
	case "d":
		if valid {
			id := items[m.cursor].ID
			return m.run(func(ctx context.Context) error { return m.detail.DeleteItem(ctx, id) })
		}
	case "e":
		if valid && m.detail.StartEdit(items[m.cursor].ID) {
			_, name, _ := m.detail.Editing()
			m.startInput("Item name...", name)
		}
	case "esc":
		return m.navigate("/todos")
	}
	return nil
}

// updateEditing drives the rename of an item. A failed save keeps the
// editor open with the typed name.
func (m *Model) updateEditing(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.detail.SetEditName(m.input.Value())
			return m.run(func(ctx context.Context) error {
				return m.detail.HandleKey(ctx, controller.KeyEnter)
			})
		case "esc":
			_ = m.detail.HandleKey(m.ctx, controller.KeyEscape)
			m.input.Blur()
			return nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) updateDashboard(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch key.String() {
	case "enter":
		controller.NewDashboard(m.store).Logout(m.ctx, m.jar)
		m.resetControllers()
		return m.navigate("/login")
	case "tab", "esc":
		return m.navigate("/todos")
	}
	return nil
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("gophtodo"))
	if u := m.store.User(); u != nil {
		b.WriteString(mutedStyle.Render("  " + u.Username))
	}
	b.WriteString("\n\n")

	var help string
	switch m.screen {
	case screenLogin:
		m.viewForm(&b, "Login to your account")
		help = "enter login · tab next field · ctrl+r create account · ctrl+c quit"
	case screenRegister:
		m.viewForm(&b, "Create an account")
		help = "enter create · tab next field · esc back to login · ctrl+c quit"
	case screenTodos:
		m.viewTodos(&b)
		help = "↑/↓ move · enter open · n new · d delete · r reload · tab dashboard · ctrl+c quit"
	case screenDetail:
		m.viewDetail(&b)
		help = "↑/↓ move · space toggle · n new · e edit · d delete · esc back · ctrl+c quit"
	case screenDashboard:
		m.viewDashboard(&b)
		help = "enter logout · tab todos · ctrl+c quit"
	}

	if len(m.shown) > 0 {
		b.WriteString("\n")
		for _, t := range m.shown {
			b.WriteString(toastLine(t) + "\n")
		}
	}
	b.WriteString("\n" + helpStyle.Render(help))
	return panelStyle.Render(b.String())
}

func (m *Model) viewForm(b *strings.Builder, title string) {
	labels := loginLabels
	if m.screen == screenRegister {
		labels = registerLabels
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")
	for i, f := range m.fields {
		b.WriteString(labels[i] + "\n" + f.View() + "\n")
	}
	if m.formErr != "" {
		b.WriteString("\n" + errorStyle.Render(m.formErr) + "\n")
	}
	if m.busy {
		b.WriteString("\n" + mutedStyle.Render("Please wait...") + "\n")
	}
}

func (m *Model) viewTodos(b *strings.Builder) {
	b.WriteString(titleStyle.Render("My Todos") + "\n\n")
	if m.adding {
		b.WriteString(m.input.View() + "\n\n")
	}
	switch m.todos.State() {
	case controller.ListLoading:
		b.WriteString(mutedStyle.Render("Loading...") + "\n")
		return
	case controller.ListEmpty:
		b.WriteString(mutedStyle.Render("No todos yet. Press n to create your first todo!") + "\n")
		return
	}
	for i, t := range m.todos.Todos() {
		fmt.Fprintf(b, "%s%s  %s %d/%d (%d%%)\n",
			cursorPrefix(i == m.cursor), t.Name,
			progressBar(t.Progress.Percent(), 10),
			t.Progress.Completed, t.Progress.Total, t.Progress.Percent())
	}
}

func (m *Model) viewDetail(b *strings.Builder) {
	cl := m.detail.Checklist()
	if cl == nil {
		if m.detail.State() == controller.DetailLoading || m.busy {
			b.WriteString(mutedStyle.Render("Loading...") + "\n")
		} else {
			b.WriteString(errorStyle.Render(controller.MsgChecklistNotFound) + "\n")
		}
		return
	}
	p := m.detail.Progress()
	fmt.Fprintf(b, "%s  %s\n\n", titleStyle.Render(cl.Name),
		mutedStyle.Render(fmt.Sprintf("%d of %d completed", p.Completed, p.Total)))
	if m.adding {
		b.WriteString(m.input.View() + "\n\n")
	}

	editID, _, editing := m.detail.Editing()
	items := m.detail.Items()
	if len(items) == 0 {
		b.WriteString(mutedStyle.Render("No items yet. Press n to add one!") + "\n")
		return
	}
	for i, it := range items {
		box, name := boxUnchecked, it.Name
		if it.Completed {
			box, name = successStyle.Render(boxChecked), doneStyle.Render(it.Name)
		}
		if editing && it.ID == editID {
			name = m.input.View()
		}
		fmt.Fprintf(b, "%s%s %s\n", cursorPrefix(i == m.cursor), box, name)
	}
}

func (m *Model) viewDashboard(b *strings.Builder) {
	b.WriteString(titleStyle.Render("Welcome to Your Dashboard") + "\n\n")
	u := controller.NewDashboard(m.store).User()
	if u == nil {
		return
	}
	fmt.Fprintf(b, "Username: %s\nEmail:    %s\nUser ID:  %s\n", u.Username, u.Email, u.ID)
}
