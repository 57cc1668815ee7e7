package cli

import (
	"fmt"
	"io"

	"tess-backend/models"
)

func printDossier(w io.Writer, d *models.Dossier) {
	fmt.Fprintf(w, "Dossier %s (bijgewerkt %s)\n", d.DossierID, d.UpdatedAt.Format("2006-01-02 15:04"))

	fmt.Fprintln(w, "\nBronnen:")
	titles := d.Titles()
	if len(titles) == 0 {
		fmt.Fprintln(w, "  (geen)")
	}
	for _, t := range titles {
		mark := " "
		if d.IsSelected(t) {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %s\n", mark, t)
	}

	fmt.Fprintln(w, "\nGesprek:")
	for _, m := range d.Conversation {
		fmt.Fprintf(w, "  %s: %s\n", m.Role, m.Content)
	}
}
