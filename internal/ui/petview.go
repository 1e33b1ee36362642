package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Mohsinsiddi/cryptopet/internal/pets"
)

// PetCard renders one pet with its meters.
func PetCard(p pets.Record, now time.Time) string {
	if !p.HasNFT {
		return StyleBorder.Render(StyleMeta.Render("No pet selected. Mint one with: cryptopet mint <name>"))
	}

	var sb strings.Builder
	sb.WriteString(StyleValue.Render(p.Name) + "  " + StyleMeta.Render("#"+p.ID) + "  " + TypeBadge(p.Type) + "\n")
	fmt.Fprintf(&sb, "%s %s\n", StyleMeta.Render(fmt.Sprintf("%-10s", "Level")), Val(fmt.Sprintf("%d  (%d xp)", p.Level, p.XP)))
	fmt.Fprintf(&sb, "%s %s\n", StyleMeta.Render(fmt.Sprintf("%-10s", "Happiness")), Bar(p.Happiness, 20, StyleSuccess))
	fmt.Fprintf(&sb, "%s %s\n", StyleMeta.Render(fmt.Sprintf("%-10s", "Hunger")), Bar(p.Hunger, 20, StyleWarning))
	fmt.Fprintf(&sb, "%s %s\n", StyleMeta.Render(fmt.Sprintf("%-10s", "Age")), Val(Age(p.Birthdate, now)))
	fmt.Fprintf(&sb, "%s %s", StyleMeta.Render(fmt.Sprintf("%-10s", "Last seen")), Meta(Ago(p.LastInteraction, now)))
	if p.ImageURI != "" {
		sb.WriteString("\n" + StyleMeta.Render(fmt.Sprintf("%-10s ", "Image")) + StyleAddress.Render(p.ImageURI))
	}
	return StyleBorder.Render(sb.String())
}

// PetTable renders records as a table with selectedID highlighted.
func PetTable(records []pets.Record, selectedID string) string {
	t := NewTable([]Column{
		{Title: "ID", Width: 6},
		{Title: "Name", Width: 16},
		{Title: "Type", Width: 6},
		{Title: "Lvl", Width: 4, Right: true},
		{Title: "XP", Width: 6, Right: true},
		{Title: "Happy", Width: 6, Right: true},
		{Title: "Hunger", Width: 6, Right: true},
	})
	for i, p := range records {
		if p.ID == selectedID {
			t.SelIdx = i
		}
		t.AddRow(Row{
			p.ID, p.Name, p.Type.String(),
			fmt.Sprint(p.Level), fmt.Sprint(p.XP),
			fmt.Sprint(p.Happiness), fmt.Sprint(p.Hunger),
		})
	}
	return t.Render()
}

// Age formats the time since birth in days, or hours for a new pet.
func Age(birth, now time.Time) string {
	if birth.IsZero() {
		return "unknown"
	}
	d := now.Sub(birth)
	if d < 48*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// Ago formats a past time relative to now.
func Ago(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
