package cli

import (
	"encoding/json/jsontext"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/listenupapp/showcase-server/internal/store"
)

// inspectedDoc is the printed form of a stored document.
type inspectedDoc struct {
	Path      string         `json:"path"`
	UpdatedAt string         `json:"updatedAt"`
	Data      jsontext.Value `json:"data"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect <path>",
		Short: "Dump a document or the documents of a collection",
		Long: `Inspect prints stored documents as JSON.

A path with an even number of segments names a document
(publicShowcases/sc-1); an odd number names a collection
(users/u1/showcases).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := store.Path(args[0])
			if !p.Valid() {
				return fmt.Errorf("invalid path %q", args[0])
			}

			e, err := rootOpts.openEngine(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			if p.IsDocument() {
				doc, err := e.docs.Get(cmd.Context(), p)
				if err != nil {
					return fmt.Errorf("get %s: %w", p, err)
				}
				return writeJSON(cmd.OutOrStdout(), toInspected(doc))
			}

			q := store.From(p)
			if limit > 0 {
				q = q.Take(limit)
			}
			docs, err := e.docs.Query(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("query %s: %w", p, err)
			}
			out := make([]inspectedDoc, 0, len(docs))
			for _, doc := range docs {
				out = append(out, toInspected(doc))
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum documents to print from a collection (0 = all)")

	return cmd
}

func toInspected(doc *store.Document) inspectedDoc {
	return inspectedDoc{
		Path:      doc.Path.String(),
		UpdatedAt: doc.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Data:      doc.Data,
	}
}
