package store

import "database/sql"

var migrations = []Migration{
	{
		Version:     1,
		Description: "create prefs",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE prefs (
					queue      TEXT PRIMARY KEY,
					mode       TEXT     NOT NULL,
					page       INTEGER  NOT NULL DEFAULT 1,
					updated_at DATETIME NOT NULL
				)`)
			return err
		},
	},
	{
		Version:     2,
		Description: "create actions",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE actions (
					id         TEXT PRIMARY KEY,
					queue      TEXT     NOT NULL,
					item_id    TEXT     NOT NULL,
					action     TEXT     NOT NULL,
					ok         INTEGER  NOT NULL,
					error      TEXT     NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL
				)`); err != nil {
				return err
			}
			_, err := tx.Exec(`CREATE INDEX idx_actions_created ON actions(created_at DESC)`)
			return err
		},
	},
}
