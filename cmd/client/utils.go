// cmd/client/utils.go

package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Color definitions for the interface
var (
	colorOK     = color.New(color.FgGreen, color.Bold).SprintFunc()
	colorErr    = color.New(color.FgRed, color.Bold).SprintFunc()
	colorPrompt = color.New(color.FgMagenta).SprintFunc()
	colorInfo   = color.New(color.FgBlue).SprintFunc()
)

// clearScreen clears the terminal screen.
func clearScreen() {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "cls")
	default:
		cmd = exec.Command("clear")
	}
	cmd.Stdout = os.Stdout
	_ = cmd.Run()
}

func printStatus(resp *apiResponse) {
	fmt.Println(colorOK("√ ", resp.Message))
}

// printData renders the response data as a table, falling back to
// indented JSON for shapes a table cannot show.
func printData(resp *apiResponse) error {
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		fmt.Println(colorInfo("(no data)"))
		return nil
	}
	if printDynamicTable(resp.Data) {
		return nil
	}
	pretty, err := json.MarshalIndent(resp.Data, "", "  ")
	if err != nil {
		return fmt.Errorf("could not format response: %w", err)
	}
	fmt.Println(string(pretty))
	return nil
}

// tableRows turns JSON data into a header and rows: an array of objects
// becomes one column per field, a single object becomes Key/Value pairs, and
// an array of scalars becomes one Value column.
func tableRows(dataBytes []byte) ([]string, [][]string, bool) {
	var objects []map[string]any
	if err := json.Unmarshal(dataBytes, &objects); err == nil {
		headerSet := make(map[string]bool)
		for _, doc := range objects {
			for key := range doc {
				headerSet[key] = true
			}
		}
		headers := make([]string, 0, len(headerSet))
		for key := range headerSet {
			headers = append(headers, key)
		}
		sort.Strings(headers)

		rows := make([][]string, 0, len(objects))
		for _, doc := range objects {
			row := make([]string, len(headers))
			for i, header := range headers {
				if val, ok := doc[header]; ok {
					row[i] = cellString(val)
				} else {
					row[i] = "(n/a)"
				}
			}
			rows = append(rows, row)
		}
		return headers, rows, true
	}

	var single map[string]any
	if err := json.Unmarshal(dataBytes, &single); err == nil {
		keys := make([]string, 0, len(single))
		for k := range single {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, cellString(single[k])})
		}
		return []string{"Key", "Value"}, rows, true
	}

	var scalars []any
	if err := json.Unmarshal(dataBytes, &scalars); err == nil {
		rows := make([][]string, 0, len(scalars))
		for _, item := range scalars {
			rows = append(rows, []string{cellString(item)})
		}
		return []string{"Value"}, rows, true
	}
	return nil, nil, false
}

func printDynamicTable(dataBytes []byte) bool {
	headers, rows, ok := tableRows(dataBytes)
	if !ok {
		return false
	}
	if len(rows) == 0 {
		fmt.Println(colorInfo("(empty)"))
		return true
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
	return true
}

func cellString(val any) string {
	switch v := val.(type) {
	case map[string]any, []any:
		out, _ := json.MarshalIndent(v, "", "  ")
		return string(out)
	case nil:
		return "(nil)"
	default:
		return fmt.Sprintf("%v", v)
	}
}
