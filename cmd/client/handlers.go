// cmd/client/handlers.go

package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"
)

// getCommands defines all available commands, their help, handler, and category.
func (c *cli) getCommands() map[string]command {
	return map[string]command{
		"help":  {help: "help - Shows this help message", handler: (*cli).handleHelp, category: "General"},
		"exit":  {help: "exit - Exits the client", handler: (*cli).handleExit, category: "General"},
		"clear": {help: "clear - Clears the screen", handler: (*cli).handleClear, category: "General"},

		"use":               {help: "use [<collection>] - Selects the collection for document commands (no name clears it)", handler: (*cli).handleUse, category: "Collections"},
		"collections":       {help: "collections - Lists all collections", handler: (*cli).handleCollections, category: "Collections"},
		"collection create": {help: "collection create <name> - Creates a collection", handler: (*cli).handleCollectionCreate, category: "Collections"},
		"collection delete": {help: "collection delete <name> - Deletes a collection and its file", handler: (*cli).handleCollectionDelete, category: "Collections"},

		"list":   {help: "list [query] - Lists documents, e.g. list page=2&size=5&sort=-price&search=red&fields=name&price[gt]=10", handler: (*cli).handleList, category: "Documents", needsCollection: true},
		"get":    {help: "get <key> - Gets one document", handler: (*cli).handleGet, category: "Documents", needsCollection: true},
		"set":    {help: "set [<key>] <json> - Stores a document; without a key one is generated", handler: (*cli).handleSet, category: "Documents", needsCollection: true},
		"delete": {help: "delete <key> - Deletes one document", handler: (*cli).handleDelete, category: "Documents", needsCollection: true},

		"index create": {help: "index create <field> - Creates an index on a field", handler: (*cli).handleIndexCreate, category: "Indexes", needsCollection: true},
		"index list":   {help: "index list - Lists indexed fields", handler: (*cli).handleIndexList, category: "Indexes", needsCollection: true},
		"index delete": {help: "index delete <field> - Deletes an index", handler: (*cli).handleIndexDelete, category: "Indexes", needsCollection: true},
	}
}

func (c *cli) handleHelp(args string) error {
	fmt.Println(colorInfo("\ndocquery CLI Help"))
	fmt.Println("---------------------")

	categories := make(map[string][]string)
	for cmdName, cmdDetails := range c.commands {
		categories[cmdDetails.category] = append(categories[cmdDetails.category], cmdName)
	}
	categoryNames := make([]string, 0, len(categories))
	for name := range categories {
		categoryNames = append(categoryNames, name)
	}
	sort.Strings(categoryNames)

	for _, category := range categoryNames {
		fmt.Printf("\n%s%s%s\n", colorOK("== "), colorOK(category), colorOK(" =="))
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Command", "Description"})
		table.SetAutoWrapText(false)

		cmds := categories[category]
		sort.Strings(cmds)
		for _, cmd := range cmds {
			table.Append([]string{cmd, c.commands[cmd].help})
		}
		table.Render()
	}
	fmt.Println("---------------------")
	return nil
}

func (c *cli) handleExit(args string) error {
	return io.EOF
}

func (c *cli) handleClear(args string) error {
	clearScreen()
	return nil
}

func (c *cli) handleUse(args string) error {
	if args == "" {
		c.currentCollection = ""
		fmt.Println(colorOK("√ No collection selected"))
		return nil
	}
	if strings.ContainsAny(args, " \t") {
		return errors.New("usage: use <collection>")
	}
	c.currentCollection = args
	fmt.Println(colorOK("√ Using collection ", args))
	return nil
}

func (c *cli) handleCollections(args string) error {
	resp, err := c.api.do(http.MethodGet, "/collections", nil)
	if err != nil {
		return err
	}
	return printData(resp)
}

func (c *cli) handleCollectionCreate(args string) error {
	if args == "" {
		return errors.New("usage: collection create <name>")
	}
	resp, err := c.api.do(http.MethodPost, collectionPath(args), nil)
	if err != nil {
		return err
	}
	printStatus(resp)
	return nil
}

func (c *cli) handleCollectionDelete(args string) error {
	if args == "" {
		return errors.New("usage: collection delete <name>")
	}
	resp, err := c.api.do(http.MethodDelete, collectionPath(args), nil)
	if err != nil {
		return err
	}
	if c.currentCollection == args {
		c.currentCollection = ""
	}
	printStatus(resp)
	return nil
}

func (c *cli) handleList(args string) error {
	path, err := listPath(c.currentCollection, args)
	if err != nil {
		return err
	}
	resp, err := c.api.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := printData(resp); err != nil {
		return err
	}
	if p := resp.Pagination; p != nil {
		fmt.Println(colorInfo(fmt.Sprintf("Page %d/%d, size %d, %d matching documents", p.Page, p.TotalPages, p.Size, p.Total)))
	}
	return nil
}

func (c *cli) handleGet(args string) error {
	if args == "" {
		return errors.New("usage: get <key>")
	}
	resp, err := c.api.do(http.MethodGet, collectionPath(c.currentCollection, "items", args), nil)
	if err != nil {
		return err
	}
	return printData(resp)
}

func (c *cli) handleSet(args string) error {
	key, doc, err := parseSetArgs(args)
	if err != nil {
		return err
	}
	body := map[string]any{"key": key, "value": jsoniter.RawMessage(doc)}
	resp, err := c.api.do(http.MethodPost, collectionPath(c.currentCollection, "items"), body)
	if err != nil {
		return err
	}
	printStatus(resp)
	return nil
}

// parseSetArgs reads "[<key>] <json>". A line starting with '{' has no key.
func parseSetArgs(args string) (string, []byte, error) {
	var key, doc string
	if strings.HasPrefix(args, "{") {
		doc = args
	} else {
		key, doc, _ = strings.Cut(args, " ")
		doc = strings.TrimSpace(doc)
	}
	if doc == "" {
		return "", nil, errors.New("usage: set [<key>] <json>")
	}
	if !json.Valid([]byte(doc)) {
		return "", nil, errors.New("document is not valid JSON")
	}
	return key, []byte(doc), nil
}

func (c *cli) handleDelete(args string) error {
	if args == "" {
		return errors.New("usage: delete <key>")
	}
	resp, err := c.api.do(http.MethodDelete, collectionPath(c.currentCollection, "items", args), nil)
	if err != nil {
		return err
	}
	printStatus(resp)
	return nil
}

func (c *cli) handleIndexCreate(args string) error {
	if args == "" {
		return errors.New("usage: index create <field>")
	}
	resp, err := c.api.do(http.MethodPost, collectionPath(c.currentCollection, "indexes"), map[string]string{"field": args})
	if err != nil {
		return err
	}
	printStatus(resp)
	return nil
}

func (c *cli) handleIndexList(args string) error {
	resp, err := c.api.do(http.MethodGet, collectionPath(c.currentCollection, "indexes"), nil)
	if err != nil {
		return err
	}
	return printData(resp)
}

func (c *cli) handleIndexDelete(args string) error {
	if args == "" {
		return errors.New("usage: index delete <field>")
	}
	resp, err := c.api.do(http.MethodDelete, collectionPath(c.currentCollection, "indexes", args), nil)
	if err != nil {
		return err
	}
	printStatus(resp)
	return nil
}
