package main

import (
	"chat-relay/domain"
	"chat-relay/infrastructure/websocket"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

var (
	stamp   = color.New(color.FgGray)
	origin  = color.New(color.FgGreen, color.OpBold)
	failure = color.New(color.FgRed)
)

// render prints one incoming frame, it returns the history page when the frame carries one.
func render(w io.Writer, env websocket.Envelope) (*websocket.HistoryResponse, error) {
	switch env.Event {
	case websocket.EventChatMessage:
		var msg domain.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return nil, err
		}
		fmt.Fprintln(w, line(msg))
	case websocket.EventHistory:
		var page websocket.HistoryResponse
		if err := json.Unmarshal(env.Data, &page); err != nil {
			return nil, err
		}
		historyTable(w, page)
		return &page, nil
	case websocket.EventError:
		var payload websocket.ErrorPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, err
		}
		fmt.Fprintln(w, failure.Render("relay: "+payload.Message))
	}
	return nil, nil
}

func line(msg domain.Message) string {
	return fmt.Sprintf("%s %s %s",
		stamp.Render(msg.Timestamp.Local().Format(time.TimeOnly)),
		origin.Render(fmt.Sprintf("[%s/%s]", msg.SessionID, msg.Origin)),
		msg.Text,
	)
}

// historyTable prints the page oldest first, the relay serves it newest first.
func historyTable(w io.Writer, page websocket.HistoryResponse) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "ID", "Origin", "Text"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	for i := len(page.Messages) - 1; i >= 0; i-- {
		msg := page.Messages[i]
		table.Append([]string{
			msg.Timestamp.Local().Format(time.DateTime),
			string(msg.ID),
			string(msg.Origin),
			msg.Text,
		})
	}
	table.Render()
	if page.Cursor != nil {
		fmt.Fprintf(w, "more: --cursor %s\n", *page.Cursor)
	}
}
