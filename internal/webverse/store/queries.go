package store

import "database/sql"

// DeviceID returns the durable anonymous identifier for this installation
func (s *Store) DeviceID() (string, error) {
	var id string
	if err := s.db.QueryRow(`SELECT id FROM device LIMIT 1`).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// FirstSeenSent reports whether the first-run event was already emitted
func (s *Store) FirstSeenSent() (bool, error) {
	var sent int
	if err := s.db.QueryRow(`SELECT COALESCE(first_seen_sent, 0) FROM device LIMIT 1`).Scan(&sent); err != nil {
		return false, err
	}
	return sent != 0, nil
}

// SetFirstSeenSent records that the first-run event was emitted
func (s *Store) SetFirstSeenSent(sent bool) error {
	v := 0
	if sent {
		v = 1
	}
	_, err := s.db.Exec(`UPDATE device SET first_seen_sent = ?`, v)
	return err
}

// ActiveLab returns the persisted runtime lock value; empty means no
// lab owns the active slot.
func (s *Store) ActiveLab() (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT active_lab_id FROM runtime_lock WHERE id = 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// SetActiveLab persists the runtime lock value; empty clears it
func (s *Store) SetActiveLab(labID string) error {
	_, err := s.db.Exec(`UPDATE runtime_lock SET active_lab_id = ? WHERE id = 1`, labID)
	return err
}

// MarkStarted upserts the progress row for labID. started_at models
// "most recent successful start", so it is overwritten on every call.
func (s *Store) MarkStarted(labID string) error {
	_, err := s.db.Exec(`
		INSERT INTO progress (lab_id, started_at, attempts)
		VALUES (?, ?, 0)
		ON CONFLICT(lab_id) DO UPDATE SET
			started_at = excluded.started_at
	`, labID, nowUTC())
	return err
}

// MarkAttempt increments the attempt counter for labID, creating the
// row if it does not exist yet.
func (s *Store) MarkAttempt(labID string) error {
	now := nowUTC()
	_, err := s.db.Exec(`
		INSERT INTO progress (lab_id, attempts, last_attempt_at)
		VALUES (?, 1, ?)
		ON CONFLICT(lab_id) DO UPDATE SET
			attempts = progress.attempts + 1,
			last_attempt_at = excluded.last_attempt_at
	`, labID, now)
	return err
}

// MarkSolved sets solved_at exactly once; later calls keep the first value
func (s *Store) MarkSolved(labID string) error {
	now := nowUTC()
	_, err := s.db.Exec(`
		INSERT INTO progress (lab_id, solved_at)
		VALUES (?, ?)
		ON CONFLICT(lab_id) DO UPDATE SET
			solved_at = COALESCE(progress.solved_at, excluded.solved_at)
	`, labID, now)
	return err
}

// ProgressMap returns all progress rows keyed by lab id
func (s *Store) ProgressMap() (map[string]Row, error) {
	rows, err := s.db.Query(`
		SELECT lab_id, started_at, solved_at, attempts, last_attempt_at, notes
		FROM progress
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := map[string]Row{}
	for rows.Next() {
		var r Row
		var startedAt, solvedAt, lastAttemptAt sql.NullString
		if err := rows.Scan(&r.LabID, &startedAt, &solvedAt, &r.Attempts, &lastAttemptAt, &r.Notes); err != nil {
			return nil, err
		}
		r.StartedAt = startedAt.String
		r.SolvedAt = solvedAt.String
		r.LastAttemptAt = lastAttemptAt.String
		out[r.LabID] = r
	}
	return out, rows.Err()
}

// Notes returns the free-text notes for labID
func (s *Store) Notes(labID string) (string, error) {
	var notes string
	err := s.db.QueryRow(`SELECT notes FROM progress WHERE lab_id = ?`, labID).Scan(&notes)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return notes, nil
}

// SetNotes replaces the notes for labID, creating the row if needed
func (s *Store) SetNotes(labID, notes string) error {
	_, err := s.db.Exec(`
		INSERT INTO progress (lab_id, notes)
		VALUES (?, ?)
		ON CONFLICT(lab_id) DO UPDATE SET
			notes = excluded.notes
	`, labID, notes)
	return err
}
