package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/auraarchive/aura/internal/catalog"
	"github.com/auraarchive/aura/internal/config"
)

// --- item ---

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage catalog items",
}

// shortID abbreviates a uuid for list display. Imported catalogs may carry
// arbitrary ids, so short ones pass through untruncated.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func parseSeasons(raw string) catalog.Seasons {
	if raw == "" {
		return nil
	}
	var out catalog.Seasons
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, catalog.Season(s))
		}
	}
	return out
}

var itemAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an item to the catalog",
	Long: `Add an item to the catalog.

Examples:
  aura item add "Wool Coat" --type clothing --brand North --season Winter
  aura item add "Vitamin C Serum" --type beauty --opened 2026-08-01 --expiry-months 12`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		brand, _ := cmd.Flags().GetString("brand")
		category, _ := cmd.Flags().GetString("category")
		color, _ := cmd.Flags().GetString("color")
		status, _ := cmd.Flags().GetString("status")
		seasons, _ := cmd.Flags().GetString("season")
		opened, _ := cmd.Flags().GetString("opened")
		expiry, _ := cmd.Flags().GetInt("expiry-months")
		notes, _ := cmd.Flags().GetString("notes")

		item := catalog.Item{
			Name:         strings.Join(args, " "),
			Type:         catalog.ItemType(typ),
			Brand:        brand,
			Category:     category,
			Color:        color,
			Status:       catalog.RefillStatus(status),
			Season:       parseSeasons(seasons),
			OpenedDate:   opened,
			ExpiryMonths: expiry,
			Notes:        notes,
		}
		if item.Status == "" {
			item.Status = catalog.StatusInStock
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/items", item)
		if err != nil {
			return err
		}

		var stored catalog.Item
		if err := decodeJSON(resp, &stored); err != nil {
			return err
		}
		printSuccess("Added %s (%s)", stored.Name, stored.ID)
		return nil
	},
}

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog items",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		for flag, param := range map[string]string{
			"type": "type", "search": "q", "status": "status",
			"color": "color", "category": "category", "season": "season",
		} {
			if v, _ := cmd.Flags().GetString(flag); v != "" {
				q.Set(param, v)
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		path := "/items"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var items []catalog.Item
		if err := decodeJSON(resp, &items); err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No items found.")
			return nil
		}

		for _, it := range items {
			label := it.Name
			if it.Brand != "" {
				label = it.Brand + " " + it.Name
			}
			fmt.Printf("%s  %-8s  %-12s  %s\n",
				colorize(colorCyan, shortID(it.ID)),
				it.Type,
				it.Status,
				label,
			)
		}
		return nil
	},
}

var itemShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single item as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/items/"+args[0])
		if err != nil {
			return err
		}

		var item catalog.Item
		if err := decodeJSON(resp, &item); err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(item)
	},
}

var itemSetCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Update fields of an existing item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/items/"+args[0])
		if err != nil {
			return err
		}
		var item catalog.Item
		if err := decodeJSON(resp, &item); err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("name") {
			item.Name, _ = flags.GetString("name")
		}
		if flags.Changed("brand") {
			item.Brand, _ = flags.GetString("brand")
		}
		if flags.Changed("category") {
			item.Category, _ = flags.GetString("category")
		}
		if flags.Changed("color") {
			item.Color, _ = flags.GetString("color")
		}
		if flags.Changed("status") {
			s, _ := flags.GetString("status")
			item.Status = catalog.RefillStatus(s)
		}
		if flags.Changed("season") {
			s, _ := flags.GetString("season")
			item.Season = parseSeasons(s)
		}
		if flags.Changed("opened") {
			item.OpenedDate, _ = flags.GetString("opened")
		}
		if flags.Changed("expiry-months") {
			item.ExpiryMonths, _ = flags.GetInt("expiry-months")
		}
		if flags.Changed("notes") {
			item.Notes, _ = flags.GetString("notes")
		}

		updResp, err := client.put(cmd.Context(), "/items/"+args[0], item)
		if err != nil {
			return err
		}
		var updated catalog.Item
		if err := decodeJSON(updResp, &updated); err != nil {
			return err
		}
		printSuccess("Updated %s", updated.Name)
		return nil
	},
}

var itemRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove an item from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/items/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Removed item %s", args[0])
		return nil
	},
}

func addItemFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", "", `item type: "clothing" or "beauty"`)
	cmd.Flags().String("brand", "", "brand name")
	cmd.Flags().String("category", "", `category, e.g. "Jacket" or "Serum"`)
	cmd.Flags().String("color", "", "color")
	cmd.Flags().String("status", "", `refill status: "in-stock", "low" or "out"`)
	cmd.Flags().String("season", "", "comma-separated seasons (clothing)")
	cmd.Flags().String("opened", "", "opened date YYYY-MM-DD (beauty)")
	cmd.Flags().Int("expiry-months", 0, "months until expiry after opening (beauty)")
	cmd.Flags().String("notes", "", "free-form notes")
}

func init() {
	addItemFlags(itemAddCmd)
	addItemFlags(itemSetCmd)

	itemListCmd.Flags().String("type", "", "filter by item type")
	itemListCmd.Flags().String("search", "", "free-text search over name, brand and category")
	itemListCmd.Flags().String("status", "", "filter by refill status (comma-separated)")
	itemListCmd.Flags().String("color", "", "filter by color")
	itemListCmd.Flags().String("category", "", "filter by category")
	itemListCmd.Flags().String("season", "", "filter by season")

	itemCmd.AddCommand(itemAddCmd)
	itemCmd.AddCommand(itemListCmd)
	itemCmd.AddCommand(itemShowCmd)
	itemCmd.AddCommand(itemSetCmd)
	itemCmd.AddCommand(itemRmCmd)
}

// --- advice ---

var adviceCmd = &cobra.Command{
	Use:   "advice <id>",
	Short: "Get a styling or usage tip for an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/items/"+args[0]+"/advice")
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		fmt.Println(result["advice"])
		return nil
	},
}

// --- sync ---

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the catalog with the cloud backup",
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload the catalog to the cloud backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/sync/push", nil)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Catalog pushed (synced at %s)", result["synced_at"])
		return nil
	},
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Merge the cloud backup into the local catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/sync/pull", nil)
		if err != nil {
			return err
		}

		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Catalog merged (%v items)", result["items"])
		return nil
	},
}

var syncRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the local catalog with the cloud backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will REPLACE the local catalog with the cloud backup. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/sync/pull?replace=true", nil)
		if err != nil {
			return err
		}

		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Catalog restored (%v items)", result["items"])
		return nil
	},
}

func init() {
	syncRestoreCmd.Flags().Bool("confirm", false, "confirm catalog replacement")
	syncCmd.AddCommand(syncPushCmd)
	syncCmd.AddCommand(syncPullCmd)
	syncCmd.AddCommand(syncRestoreCmd)
}

// --- backup ---

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or import the catalog as a local file",
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog as pretty-printed JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/backup/export")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}

		writer := os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			writer = f
		}
		if _, err := writer.ReadFrom(resp.Body); err != nil {
			return err
		}
		if output != "" {
			printSuccess("Catalog exported to %s", output)
		}
		return nil
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a catalog backup file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		replace, _ := cmd.Flags().GetBool("replace")
		confirm, _ := cmd.Flags().GetBool("confirm")
		if replace && !confirm {
			printWarning("This will REPLACE the local catalog. Use --confirm to proceed.")
			return nil
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading backup file: %w", err)
		}
		var items []catalog.Item
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("invalid backup file: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		path := "/backup/import"
		if replace {
			path += "?replace=true"
		}
		resp, err := client.post(cmd.Context(), path, items)
		if err != nil {
			return err
		}

		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Catalog imported (%v items)", result["items"])
		return nil
	},
}

func init() {
	backupExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	backupImportCmd.Flags().Bool("replace", false, "replace the catalog instead of merging")
	backupImportCmd.Flags().Bool("confirm", false, "confirm catalog replacement")
	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupImportCmd)
}

// --- enrich ---

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "AI analysis of product photos and receipts",
}

var enrichAnalyzeCmd = &cobra.Command{
	Use:   "analyze <image-file>",
	Short: "Identify a product from a photo",
	Long: `Identify a product from a photo.

Examples:
  aura enrich analyze blazer.jpg --type clothing
  aura enrich analyze serum.jpg --type beauty --item 4f3a2b1c`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		itemID, _ := cmd.Flags().GetString("item")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/enrich/analyze", map[string]string{
			"image": base64.StdEncoding.EncodeToString(data),
			"type":  typ,
		})
		if err != nil {
			return err
		}

		var analysis map[string]string
		if err := decodeJSON(resp, &analysis); err != nil {
			return err
		}
		printStatus("Name", "%s", analysis["name"])
		printStatus("Brand", "%s", analysis["brand"])
		printStatus("Category", "%s", analysis["category"])
		printStatus("Description", "%s", analysis["description"])

		if itemID == "" {
			return nil
		}
		applyResp, err := client.post(cmd.Context(), "/items/"+itemID+"/analysis", analysis)
		if err != nil {
			return err
		}
		var updated catalog.Item
		if err := decodeJSON(applyResp, &updated); err != nil {
			return err
		}
		printSuccess("Applied analysis to %s", updated.Name)
		return nil
	},
}

var enrichReceiptCmd = &cobra.Command{
	Use:   "receipt",
	Short: "Extract purchased items from a receipt",
	Long: `Extract purchased items from a receipt photo, PDF, or pasted text.
Extracted candidates are only added to the catalog with --import.

Examples:
  aura enrich receipt --image receipt.jpg
  aura enrich receipt --pdf order.pdf --import
  aura enrich receipt --text "GLWLB VITC SRM 20ML"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		image, _ := cmd.Flags().GetString("image")
		text, _ := cmd.Flags().GetString("text")
		pdf, _ := cmd.Flags().GetString("pdf")
		doImport, _ := cmd.Flags().GetBool("import")

		req := map[string]string{}
		switch {
		case image != "" && text == "" && pdf == "":
			data, err := os.ReadFile(image)
			if err != nil {
				return fmt.Errorf("reading image: %w", err)
			}
			req["image"] = base64.StdEncoding.EncodeToString(data)
		case pdf != "" && image == "" && text == "":
			data, err := os.ReadFile(pdf)
			if err != nil {
				return fmt.Errorf("reading pdf: %w", err)
			}
			req["pdf"] = base64.StdEncoding.EncodeToString(data)
		case text != "" && image == "" && pdf == "":
			req["text"] = text
		default:
			return fmt.Errorf("exactly one of --image, --text, or --pdf is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/enrich/receipt", req)
		if err != nil {
			return err
		}

		var result struct {
			Candidates []map[string]string `json:"candidates"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if len(result.Candidates) == 0 {
			fmt.Println("No items found on the receipt.")
			return nil
		}

		for i, c := range result.Candidates {
			fmt.Printf("%s %s %s (%s)\n",
				colorize(colorBold, fmt.Sprintf("%d.", i+1)),
				c["brand"], c["name"], c["type"],
			)
		}

		if !doImport {
			printStep("Re-run with --import to add these items to the catalog.")
			return nil
		}

		importResp, err := client.post(cmd.Context(), "/items/import", map[string]any{
			"candidates": result.Candidates,
		})
		if err != nil {
			return err
		}
		var imported struct {
			Created []catalog.Item `json:"created"`
		}
		if err := decodeJSON(importResp, &imported); err != nil {
			return err
		}
		printSuccess("Imported %d items", len(imported.Created))
		return nil
	},
}

func init() {
	enrichAnalyzeCmd.Flags().String("type", "clothing", `item type: "clothing" or "beauty"`)
	enrichAnalyzeCmd.Flags().String("item", "", "apply the analysis to an existing item id")
	enrichReceiptCmd.Flags().String("image", "", "receipt photo file")
	enrichReceiptCmd.Flags().String("text", "", "raw receipt text")
	enrichReceiptCmd.Flags().String("pdf", "", "receipt PDF file")
	enrichReceiptCmd.Flags().Bool("import", false, "add all extracted items to the catalog")
	enrichCmd.AddCommand(enrichAnalyzeCmd)
	enrichCmd.AddCommand(enrichReceiptCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
