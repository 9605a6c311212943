package notify

import (
	"bytes"
	htmltemplate "html/template"
	"io"
	texttemplate "text/template"
	"time"

	"taskManager/internal/models/task"
)

var assignmentHTML = htmltemplate.Must(htmltemplate.New("assignment").Parse(`<html>
  <body>
    <h2>You have been assigned a new task</h2>
    <p><strong>Task:</strong> {{.Title}}</p>
    <p><strong>Description:</strong> {{.Description}}</p>
    <p><strong>Priority:</strong> {{.Priority}}</p>
    <p><strong>Due Date:</strong> {{.DueDate}}</p>
    <p><strong>Assigned by:</strong> {{.Actor}}</p>
    <br/>
    <p>Please log in to the Task Management System to view more details.</p>
  </body>
</html>`))

var assignmentText = texttemplate.Must(texttemplate.New("assignment").Parse(`You have been assigned a new task: {{.Title}}

Description: {{.Description}}
Priority: {{.Priority}}
Due Date: {{.DueDate}}
Assigned by: {{.Actor}}

Please log in to the Task Management System to view more details.`))

var statusHTML = htmltemplate.Must(htmltemplate.New("status").Parse(`<html>
  <body>
    <h2>Task Status Update</h2>
    <p><strong>Task:</strong> {{.Title}}</p>
    <p><strong>Previous Status:</strong> {{.From}}</p>
    <p><strong>New Status:</strong> {{.To}}</p>
    <p><strong>Updated by:</strong> {{.Actor}}</p>
    <br/>
    <p>Please log in to the Task Management System to view more details.</p>
  </body>
</html>`))

var statusText = texttemplate.Must(texttemplate.New("status").Parse(`Task Status Update

Task: {{.Title}}
Previous Status: {{.From}}
New Status: {{.To}}
Updated by: {{.Actor}}

Please log in to the Task Management System to view more details.`))

type emailData struct {
	Title       string
	Description string
	Priority    task.Priority
	DueDate     string
	Actor       string
	From        task.Status
	To          task.Status
}

func newEmailData(t *task.Task, actor string) emailData {
	data := emailData{
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		DueDate:     "Not set",
		Actor:       actor,
	}
	if data.Description == "" {
		data.Description = "No description"
	}
	if data.Priority == "" {
		data.Priority = task.PriorityMedium
	}
	if t.DueDate != nil {
		data.DueDate = t.DueDate.Format(time.DateOnly)
	}
	return data
}

// AssignmentEmail builds the "you were assigned" message for newly added members.
func AssignmentEmail(t *task.Task, assignerName string) BuildFunc {
	data := newEmailData(t, assignerName)
	html := render(assignmentHTML, data)
	text := render(assignmentText, data)
	return func(email string) Message {
		return Message{
			To:      email,
			Subject: "Task Assigned: " + t.Title,
			HTML:    html,
			Text:    text,
		}
	}
}

func StatusChangeEmail(t *task.Task, from, to task.Status, updaterName string) BuildFunc {
	data := newEmailData(t, updaterName)
	data.From = from
	data.To = to
	html := render(statusHTML, data)
	text := render(statusText, data)
	return func(email string) Message {
		return Message{
			To:      email,
			Subject: "Task Status Updated: " + t.Title,
			HTML:    html,
			Text:    text,
		}
	}
}

type executor interface {
	Execute(io.Writer, any) error
}

func render(tmpl executor, data emailData) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}
