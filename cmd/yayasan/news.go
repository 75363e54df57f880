package main

import (
	"fmt"
	"net/url"

	"github.com/goliatone/go-print"
	"github.com/goliatone/go-yayasan"
	"github.com/spf13/cobra"
)

var newsCmd = &cobra.Command{
	Use:   "news [id]",
	Short: "List the news, or show one item",
	Long: `List the published news. With an id the full item is printed.

Examples:
  yayasan news                  # Latest news
  yayasan news --page 2         # Second page
  yayasan news 12               # One item as JSON`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNews,
}

func init() {
	newsCmd.Flags().Int("page", 0, "page number")
	newsCmd.Flags().Bool("json", false, "print the raw records")
	rootCmd.AddCommand(newsCmd)
}

func runNews(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	news := sess.client.News()

	if len(args) == 1 {
		item, err := news.Get(cmd.Context(), args[0])
		if err != nil {
			return sess.handle(err)
		}
		printer.Print("%s", print.MaybePrettyJSON(item))
		return nil
	}

	query := url.Values{}
	if page, _ := cmd.Flags().GetInt("page"); page > 0 {
		query.Set("page", fmt.Sprint(page))
	}

	items, err := news.List(cmd.Context(), query)
	if err != nil {
		return sess.handle(err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		printer.Print("%s", print.MaybePrettyJSON(items))
		return nil
	}

	if len(items) == 0 {
		printer.Info("no news")
		return nil
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{field(item, "id"), field(item, "judul"), field(item, "tanggal")})
	}
	printer.Table([]string{"id", "judul", "tanggal"}, rows)
	return nil
}

func field(r yayasan.Record, key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
