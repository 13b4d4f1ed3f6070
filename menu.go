package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/nonsonwune/meritlist/models"
	"github.com/nonsonwune/meritlist/nlquery"
)

func runMenu(a *app) {
	menuLoop(a, os.Stdin, os.Stdout)
}

func menuLoop(a *app, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	readString := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}
	engine := nlquery.NewEngine(a.evaluator, a.table, a.summary)

	for {
		displayMenu(out)
		choice, ok := readString()
		if !ok {
			return
		}

		switch choice {
		case "1":
			showError(out, renderCutoffs(out, formatTable, a.table))
		case "2":
			fmt.Fprint(out, "Enter roll number: ")
			rollNo, ok := readString()
			if !ok {
				return
			}
			report, err := a.evaluator.Analyze(rollNo, a.table)
			if err != nil {
				showError(out, err)
				continue
			}
			showError(out, renderReport(out, formatTable, report))
		case "3":
			showError(out, renderSummary(out, formatTable, a.summary))
		case "4":
			renderWarnings(out, a.warnings)
			if len(a.warnings) == 0 {
				color.New(color.FgGreen).Fprintln(out, "No data quality warnings")
			}
		case "5":
			fmt.Fprint(out, "Ask a question: ")
			question, ok := readString()
			if !ok {
				return
			}
			answer, err := engine.Ask(question)
			if err != nil {
				showError(out, err)
				continue
			}
			showError(out, renderAnswer(out, formatTable, answer))
		case "6":
			color.New(color.FgGreen).Fprintln(out, "Thank you for using the Merit List Estimator!")
			return
		default:
			color.New(color.FgRed).Fprintln(out, "Invalid choice. Please try again.")
		}
	}
}

func displayMenu(out io.Writer) {
	color.New(color.FgCyan).Fprintln(out, "\n=== Merit List Estimator ===")
	fmt.Fprintln(out, "1. Cutoff Table")
	fmt.Fprintln(out, "2. Check Candidate")
	fmt.Fprintln(out, "3. Dataset Statistics")
	fmt.Fprintln(out, "4. Data Quality Warnings")
	fmt.Fprintln(out, "5. Ask a Question")
	fmt.Fprintln(out, "6. Exit")
	fmt.Fprint(out, "\nEnter your choice (1-6): ")
}

func showError(out io.Writer, err error) {
	if err == nil {
		return
	}
	if models.IsNotFound(err) {
		color.New(color.FgRed).Fprintf(out, "%v\n", err)
		return
	}
	color.New(color.FgRed).Fprintf(out, "Error: %v\n", err)
}
