package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shulgin/pipevine/internal/runlog"
)

// Output — вывод CLI: таблицы для человека, JSON для машин.
//
// Данные выводятся в stdout, сообщения Success — в stderr, поэтому
// вывод можно передавать дальше по pipe:
//
//	pipevine show RUN_ID --json | jq .status
type Output struct {
	jsonMode bool
	w        io.Writer
	errW     io.Writer
}

// NewOutput создаёт Output; jsonMode переключает данные на JSON.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        os.Stdout,
		errW:     os.Stderr,
	}
}

// Print выводит таблицу или, в JSON-режиме, сериализует payload.
func (o *Output) Print(headers []string, rows [][]string, payload any) {
	if o.jsonMode {
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		enc.Encode(payload)
		return
	}
	o.table(headers, rows)
}

// RunLog выводит журнал запуска: по строке на каждый step log,
// рекурсивно включая шаги веток композитных узлов. В JSON-режиме
// сериализуется весь документ run log'а.
func (o *Output) RunLog(log *runlog.RunLog) {
	headers := []string{"NODE", "KIND", "STATUS", "ATTEMPTS", "MOCK", "DURATION"}
	var rows [][]string
	appendStepRows(log.Steps, &rows)
	o.Print(headers, rows, log)
}

func appendStepRows(steps []*runlog.StepLog, rows *[][]string) {
	for _, step := range steps {
		duration := ""
		if !step.FinishedAt.IsZero() {
			duration = step.FinishedAt.Sub(step.StartedAt).Round(time.Millisecond).String()
		}
		*rows = append(*rows, []string{
			step.InternalName,
			string(step.Kind),
			string(step.Status),
			strconv.Itoa(len(step.Attempts)),
			strconv.FormatBool(step.Mock),
			duration,
		})
		for _, branch := range step.Branches {
			appendStepRows(branch.Steps, rows)
		}
	}
}

func (o *Output) table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

// Success выводит итоговое сообщение в stderr, не смешиваясь с данными.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}
