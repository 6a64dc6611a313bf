package db

// RunMigrations creates the journal schema
func RunMigrations(db *DB) error {
	return db.AutoMigrate(&JournalEntry{})
}
