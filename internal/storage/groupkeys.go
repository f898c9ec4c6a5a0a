package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lotas/tabgrid/internal/applog"
	"github.com/lotas/tabgrid/internal/types"
)

// GroupKey is one stored group entry.
type GroupKey struct {
	RootID int
	Title  string // "" when only a color is stored
	Color  int    // types.NoColor when only a title is stored
}

// GroupKeys stores group titles and colors for one profile. It satisfies
// groups.Store: failures are logged and reads degrade to absent.
type GroupKeys struct {
	db      *sql.DB
	profile string
}

// NewGroupKeys returns the group key store of profile.
func NewGroupKeys(db *sql.DB, profile string) *GroupKeys {
	return &GroupKeys{db: db, profile: profile}
}

// Use switches the store to another profile's keys.
func (g *GroupKeys) Use(profile string) {
	g.profile = profile
}

func (g *GroupKeys) Title(rootID int) (string, bool) {
	var title string
	err := g.db.QueryRow(
		"SELECT title FROM group_titles WHERE profile = ? AND root_id = ?",
		g.profile, rootID,
	).Scan(&title)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			applog.Error("groupkeys.title", err, "profile", g.profile, "root", rootID)
		}
		return "", false
	}
	return title, true
}

func (g *GroupKeys) SetTitle(rootID int, title string) {
	_, err := g.db.Exec(
		`INSERT INTO group_titles (profile, root_id, title) VALUES (?, ?, ?)
		 ON CONFLICT(profile, root_id) DO UPDATE SET title = excluded.title, updated_at = CURRENT_TIMESTAMP`,
		g.profile, rootID, title,
	)
	if err != nil {
		applog.Error("groupkeys.set_title", err, "profile", g.profile, "root", rootID)
	}
}

func (g *GroupKeys) RemoveTitle(rootID int) {
	if _, err := g.db.Exec("DELETE FROM group_titles WHERE profile = ? AND root_id = ?", g.profile, rootID); err != nil {
		applog.Error("groupkeys.remove_title", err, "profile", g.profile, "root", rootID)
	}
}

func (g *GroupKeys) Color(rootID int) (int, bool) {
	var color int
	err := g.db.QueryRow(
		"SELECT color FROM group_colors WHERE profile = ? AND root_id = ?",
		g.profile, rootID,
	).Scan(&color)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			applog.Error("groupkeys.color", err, "profile", g.profile, "root", rootID)
		}
		return 0, false
	}
	return color, true
}

func (g *GroupKeys) SetColor(rootID int, color int) {
	_, err := g.db.Exec(
		`INSERT INTO group_colors (profile, root_id, color) VALUES (?, ?, ?)
		 ON CONFLICT(profile, root_id) DO UPDATE SET color = excluded.color, updated_at = CURRENT_TIMESTAMP`,
		g.profile, rootID, color,
	)
	if err != nil {
		applog.Error("groupkeys.set_color", err, "profile", g.profile, "root", rootID)
	}
}

func (g *GroupKeys) RemoveColor(rootID int) {
	if _, err := g.db.Exec("DELETE FROM group_colors WHERE profile = ? AND root_id = ?", g.profile, rootID); err != nil {
		applog.Error("groupkeys.remove_color", err, "profile", g.profile, "root", rootID)
	}
}

// List returns every stored entry of the profile ordered by root id.
func (g *GroupKeys) List() ([]GroupKey, error) {
	rows, err := g.db.Query(`
SELECT root_id, MAX(title), MAX(color) FROM (
    SELECT root_id, title, NULL AS color FROM group_titles WHERE profile = ?
    UNION ALL
    SELECT root_id, NULL AS title, color FROM group_colors WHERE profile = ?
) GROUP BY root_id ORDER BY root_id`, g.profile, g.profile)
	if err != nil {
		return nil, fmt.Errorf("query group keys: %w", err)
	}
	defer rows.Close()

	var result []GroupKey
	for rows.Next() {
		var k GroupKey
		var title sql.NullString
		var color sql.NullInt64
		if err := rows.Scan(&k.RootID, &title, &color); err != nil {
			return nil, fmt.Errorf("scan group key: %w", err)
		}
		k.Title = title.String
		k.Color = types.NoColor
		if color.Valid {
			k.Color = int(color.Int64)
		}
		result = append(result, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group keys: %w", err)
	}
	return result, nil
}

// Clear deletes every entry of the profile.
func (g *GroupKeys) Clear() error {
	tx, err := g.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM group_titles WHERE profile = ?", g.profile); err != nil {
		return fmt.Errorf("clear titles: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM group_colors WHERE profile = ?", g.profile); err != nil {
		return fmt.Errorf("clear colors: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
