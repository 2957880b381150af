package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"quietdrop/internal/model"
	"quietdrop/internal/protocol/envelope"
	"quietdrop/internal/utils/log"
)

var ErrEmptyField = errors.New("name and message cannot be empty")

type (
	Sender interface {
		Send(ctx context.Context, env *model.Envelope, addr string) error
	}

	// App is the interactive client: a compose form that seals each
	// message to the server key and sends it.
	App struct {
		app    *tview.Application
		form   *tview.Form
		status *tview.TextView

		keys       model.KeyPair
		serverKey  model.PublicKey
		serverAddr string
		sender     Sender
		timeout    time.Duration

		recipient string
	}
)

func NewApp(keys model.KeyPair, serverKey model.PublicKey, serverAddr string, sender Sender, recipient string) *App {
	return &App{
		app:        tview.NewApplication(),
		keys:       keys,
		serverKey:  serverKey,
		serverAddr: serverAddr,
		sender:     sender,
		timeout:    15 * time.Second,
		recipient:  recipient,
	}
}

// Submit seals text from name to recipient and sends it to the server.
func (c *App) Submit(ctx context.Context, name, recipient, text string) error {
	name = strings.TrimSpace(name)
	text = strings.TrimSpace(text)
	if name == "" || text == "" {
		return ErrEmptyField
	}
	if strings.TrimSpace(recipient) == "" {
		recipient = c.recipient
	}

	env := envelope.New(name, recipient, model.Text, c.keys.PublicKey)
	if err := envelope.Seal(env, text, c.serverKey, c.keys.SecretKey); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.sender.Send(ctx, env, c.serverAddr); err != nil {
		return fmt.Errorf("send to %s: %w", c.serverAddr, err)
	}

	log.Debug("message sent", zap.String("sender", name), zap.String("recipient", recipient))
	return nil
}

// Run blocks until the user quits.
func (c *App) Run(ctx context.Context) error {
	c.status = tview.NewTextView().
		SetDynamicColors(true)
	c.status.SetBorder(true).SetTitle(" Status ")

	c.form = tview.NewForm().
		AddInputField("Name", "", 30, nil, nil).
		AddInputField("Recipient", c.recipient, 30, nil, nil).
		AddInputField("Message", "", 0, nil, nil).
		AddButton("Send", c.onSend(ctx)).
		AddButton("Quit", c.app.Stop)
	c.form.SetBorder(true).SetTitle(fmt.Sprintf(" QuietDrop → %s ", c.serverAddr))

	c.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEscape {
			c.app.Stop()
			return nil
		}
		return ev
	})

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(c.form, 0, 1, true).
		AddItem(c.status, 3, 0, false)

	stop := context.AfterFunc(ctx, c.app.Stop)
	defer stop()

	return c.app.SetRoot(layout, true).SetFocus(c.form).Run()
}

func (c *App) onSend(ctx context.Context) func() {
	return func() {
		name := c.form.GetFormItemByLabel("Name").(*tview.InputField).GetText()
		recipient := c.form.GetFormItemByLabel("Recipient").(*tview.InputField).GetText()
		message := c.form.GetFormItemByLabel("Message").(*tview.InputField)
		text := message.GetText()

		c.setStatus("[yellow]Sending...[-]")
		go func() {
			err := c.Submit(ctx, name, recipient, text)
			c.app.QueueUpdateDraw(func() {
				if err != nil {
					fmt.Fprintf(c.status.Clear(), "[red]Failed:[-] %s", tview.Escape(err.Error()))
					return
				}
				message.SetText("")
				fmt.Fprint(c.status.Clear(), "[green]Message sent successfully[-]")
			})
		}()
	}
}

func (c *App) setStatus(s string) {
	fmt.Fprint(c.status.Clear(), s)
}
