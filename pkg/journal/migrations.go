package journal

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE video(
			annotation TEXT PRIMARY KEY,
			output TEXT NOT NULL,
			num_frames INT NOT NULL,
			num_candidates INT NOT NULL,
			threshold REAL NOT NULL,
			completed_at INT NOT NULL
		);
	`))

	return migs
}
