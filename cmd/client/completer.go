// cmd/client/completer.go

package main

import (
	"net/http"
	"strings"

	"github.com/chzyer/readline"
)

func (c *cli) getCompleter() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("use", readline.PcItemDynamic(c.fetchCollectionNames)),
		readline.PcItem("collections"),
		readline.PcItem("collection",
			readline.PcItem("create"),
			readline.PcItem("delete", readline.PcItemDynamic(c.fetchCollectionNames)),
		),
		readline.PcItem("list",
			readline.PcItem("page="),
			readline.PcItem("size="),
			readline.PcItem("sort="),
			readline.PcItem("search="),
			readline.PcItem("fields="),
		),
		readline.PcItem("get"),
		readline.PcItem("set"),
		readline.PcItem("delete"),
		readline.PcItem("index",
			readline.PcItem("create"),
			readline.PcItem("list"),
			readline.PcItem("delete"),
		),
		readline.PcItem("clear"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

// fetchCollectionNames asks the server for collection names. Errors yield
// no suggestions.
func (c *cli) fetchCollectionNames(line string) []string {
	resp, err := c.api.do(http.MethodGet, "/collections", nil)
	if err != nil {
		return nil
	}
	var collections []string
	if json.Unmarshal(resp.Data, &collections) != nil {
		return nil
	}

	prefix := ""
	if parts := strings.Fields(line); len(parts) > 1 && !strings.HasSuffix(line, " ") {
		prefix = parts[len(parts)-1]
	}
	var suggestions []string
	for _, collection := range collections {
		if strings.HasPrefix(collection, prefix) {
			suggestions = append(suggestions, collection)
		}
	}
	return suggestions
}
