// Package report builds the title and body of the pushed message.
//
// Every builder is a pure function of its arguments: the caller passes the
// clock value and the runtime environment, so output is deterministic under
// test. Bodies are rendered for the requested template so the receiving app
// shows them correctly.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"runtime"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/chyiyaqing/pushnotify/internal/notify"
)

const (
	statusOK  = "✅ 正常运行"
	footerTip = "💡 此消息由定时任务自动发送，如需修改请编辑 pushnotify 配置"
)

// Message is a built title/body pair ready to become a notify.Request.
type Message struct {
	Title    string
	Content  string
	Template notify.Template
}

// Request attaches the access token.
func (m Message) Request(token string) notify.Request {
	return notify.Request{
		Token:    token,
		Title:    m.Title,
		Content:  m.Content,
		Template: m.Template,
	}
}

// Environment describes where and how the job was started.
type Environment struct {
	Event     string // CI event name, e.g. "schedule" or "workflow_dispatch"
	Runner    string
	GoVersion string
	Schedule  string
	NextRun   time.Time
}

// EnvironmentFrom reads CI metadata through getenv. NextRun is left for the
// caller since it depends on the configured schedule.
func EnvironmentFrom(getenv func(string) string) Environment {
	runner := strings.TrimSpace(getenv("ImageOS"))
	if osName := strings.TrimSpace(getenv("RUNNER_OS")); osName != "" {
		if runner == "" {
			runner = osName
		} else {
			runner = fmt.Sprintf("%s (%s)", runner, osName)
		}
	}
	if runner == "" {
		runner = runtime.GOOS + "/" + runtime.GOARCH
	}
	return Environment{
		Event:     strings.TrimSpace(getenv("GITHUB_EVENT_NAME")),
		Runner:    runner,
		GoVersion: runtime.Version(),
	}
}

// TriggerLabel names the invocation source for display.
func TriggerLabel(event string) string {
	switch event {
	case "":
		return "本地执行"
	case "schedule":
		return "GitHub Actions 定时任务"
	case "workflow_dispatch":
		return "GitHub Actions 手动触发"
	default:
		return "GitHub Actions (" + event + ")"
	}
}

// BuildDaily produces the default status report. An invalid template falls
// back to markdown.
func BuildDaily(now time.Time, env Environment, tmpl notify.Template) Message {
	if !tmpl.Valid() {
		tmpl = notify.TemplateMarkdown
	}
	title := fmt.Sprintf("📋 每日定时通知 - %s", now.Format("01月02日"))
	executed := fmt.Sprintf("%s (%s)", now.Format(time.DateTime), zoneLabel(now))
	rows := taskRows(env, now)

	var content string
	switch tmpl {
	case notify.TemplateHTML:
		content = dailyHTML(executed, rows)
	case notify.TemplateTxt:
		content = dailyText(executed, rows)
	case notify.TemplateJSON:
		content = dailyJSON(title, now, rows)
	default:
		content = dailyMarkdown(executed, rows)
	}
	return Message{Title: title, Content: content, Template: tmpl}
}

// BuildCustom wraps caller-supplied content with a heading and a send-time
// footer. JSON content is passed through unchanged so it stays parseable.
func BuildCustom(now time.Time, title, content string, tmpl notify.Template) Message {
	if !tmpl.Valid() {
		tmpl = notify.TemplateMarkdown
	}
	sent := fmt.Sprintf("⏰ 发送时间: %s (%s)", now.Format(time.DateTime), zoneLabel(now))

	var body string
	switch tmpl {
	case notify.TemplateHTML:
		body = fmt.Sprintf("<h2>%s</h2>\n%s\n<hr>\n<p>%s</p>\n", html.EscapeString(title), content, sent)
	case notify.TemplateTxt:
		body = fmt.Sprintf("%s\n\n%s\n\n%s\n", title, content, sent)
	case notify.TemplateJSON:
		body = content
	default:
		body = fmt.Sprintf("## %s\n\n%s\n\n---\n\n%s\n", title, content, sent)
	}
	return Message{Title: title, Content: body, Template: tmpl}
}

type row struct {
	key   string
	label string
	value string
}

func taskRows(env Environment, now time.Time) []row {
	goVersion := env.GoVersion
	if goVersion == "" {
		goVersion = runtime.Version()
	}
	runner := env.Runner
	if runner == "" {
		runner = "-"
	}
	rows := []row{
		{key: "trigger", label: "触发方式", value: TriggerLabel(env.Event)},
		{key: "runner", label: "执行环境", value: runner},
		{key: "go_version", label: "Go 版本", value: goVersion},
	}
	if env.Schedule != "" {
		rows = append(rows, row{key: "schedule", label: "调度表达式", value: env.Schedule})
	}
	if !env.NextRun.IsZero() {
		next := env.NextRun.In(now.Location())
		rows = append(rows, row{key: "next_run", label: "下次执行", value: next.Format(time.DateTime)})
	}
	return rows
}

func newTable(rows []row) table.Writer {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"项目", "详情"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r.label, r.value})
	}
	return tw
}

func dailyMarkdown(executed string, rows []row) string {
	var sb strings.Builder
	sb.WriteString("## 🕐 定时任务执行报告\n\n")
	sb.WriteString(fmt.Sprintf("**执行时间**: %s\n\n", executed))
	sb.WriteString(fmt.Sprintf("**任务状态**: %s\n\n", statusOK))
	sb.WriteString("---\n\n")
	sb.WriteString("### 📌 任务信息\n\n")
	sb.WriteString(newTable(rows).RenderMarkdown())
	sb.WriteString("\n\n---\n\n")
	sb.WriteString("> " + footerTip + "\n")
	return sb.String()
}

func dailyHTML(executed string, rows []row) string {
	var sb strings.Builder
	sb.WriteString("<h2>🕐 定时任务执行报告</h2>\n")
	sb.WriteString(fmt.Sprintf("<p><b>执行时间</b>: %s</p>\n", html.EscapeString(executed)))
	sb.WriteString(fmt.Sprintf("<p><b>任务状态</b>: %s</p>\n", statusOK))
	sb.WriteString("<hr>\n<h3>📌 任务信息</h3>\n")
	sb.WriteString(newTable(rows).RenderHTML())
	sb.WriteString("\n<hr>\n")
	sb.WriteString("<p>" + footerTip + "</p>\n")
	return sb.String()
}

func dailyText(executed string, rows []row) string {
	tw := newTable(rows)
	tw.SetStyle(table.StyleLight)

	var sb strings.Builder
	sb.WriteString("定时任务执行报告\n\n")
	sb.WriteString(fmt.Sprintf("执行时间: %s\n", executed))
	sb.WriteString(fmt.Sprintf("任务状态: %s\n\n", statusOK))
	sb.WriteString(tw.Render())
	sb.WriteString("\n\n" + footerTip + "\n")
	return sb.String()
}

func dailyJSON(title string, now time.Time, rows []row) string {
	task := make(map[string]string, len(rows))
	for _, r := range rows {
		task[r.key] = r.value
	}
	doc := struct {
		Title      string            `json:"title"`
		ExecutedAt string            `json:"executed_at"`
		Status     string            `json:"status"`
		Task       map[string]string `json:"task"`
	}{
		Title:      title,
		ExecutedAt: now.Format(time.RFC3339),
		Status:     "ok",
		Task:       task,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	// Only string fields; Encode cannot fail.
	_ = enc.Encode(doc)
	return strings.TrimRight(buf.String(), "\n")
}

func zoneLabel(t time.Time) string {
	if _, offset := t.Zone(); offset == 8*3600 {
		return "北京时间"
	}
	return t.Format("MST")
}
