// Package trace records pipeline activity. The hooks in this package attach
// to a core and observe the snapshot it publishes at the end of every cycle.
package trace

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/murvsim/insts"
	"github.com/sarchlab/murvsim/timing/pipeline"
)

// DefaultBatchSize is the number of rows buffered before they are written.
const DefaultBatchSize = 10000

// ErrDatabaseExists is returned when the trace file is already present.
var ErrDatabaseExists = errors.New("trace database already exists")

// Row is one pipeline register in one cycle.
type Row struct {
	Cycle           uint64
	Latch           string
	Valid           bool
	Seq             uint64
	PC              uint32
	InstructionWord uint32
	Disasm          string
	Stall           string
	Forwarding      bool
}

// SQLiteTracer is a hook that writes the pipeline registers of every cycle
// to a SQLite database.
type SQLiteTracer struct {
	*sql.DB
	statement *sql.Stmt

	path      string
	decoder   *insts.Decoder
	rows      []Row
	batchSize int
}

// NewSQLiteTracer creates a tracer that writes to path. An empty path
// generates a unique file name in the working directory. Buffered rows are
// flushed when the program exits through atexit.
func NewSQLiteTracer(path string) *SQLiteTracer {
	if path == "" {
		path = "murvsim_trace_" + xid.New().String() + ".sqlite3"
	}

	t := &SQLiteTracer{
		path:      path,
		decoder:   insts.NewDecoder(),
		batchSize: DefaultBatchSize,
	}

	atexit.Register(func() { _ = t.Close() })

	return t
}

// Path returns the database file.
func (t *SQLiteTracer) Path() string {
	return t.path
}

// SetBatchSize sets the number of rows buffered before a write.
func (t *SQLiteTracer) SetBatchSize(n int) {
	t.batchSize = n
}

// Init creates the database and its table.
func (t *SQLiteTracer) Init() error {
	if _, err := os.Stat(t.path); err == nil {
		return fmt.Errorf("%w: %s", ErrDatabaseExists, t.path)
	}

	db, err := sql.Open("sqlite3", t.path)
	if err != nil {
		return fmt.Errorf("failed to open trace database: %w", err)
	}
	t.DB = db

	if err := t.createTable(); err != nil {
		return err
	}

	stmt, err := t.Prepare(`INSERT INTO pipeline VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare trace statement: %w", err)
	}
	t.statement = stmt

	return nil
}

func (t *SQLiteTracer) createTable() error {
	queries := []string{`
		CREATE TABLE pipeline
		(
			cycle      INTEGER NOT NULL,
			latch      VARCHAR(8) NOT NULL,
			valid      BOOLEAN NOT NULL,
			seq        INTEGER,
			pc         INTEGER,
			word       INTEGER,
			disasm     VARCHAR(64),
			stall      VARCHAR(64),
			forwarding BOOLEAN
		);`,
		`CREATE INDEX pipeline_cycle_index ON pipeline (cycle);`,
		`CREATE INDEX pipeline_seq_index ON pipeline (seq);`,
	}

	for _, q := range queries {
		if _, err := t.Exec(q); err != nil {
			return fmt.Errorf("failed to create trace table: %w", err)
		}
	}

	return nil
}

// Func records the snapshot carried by a cycle hook.
func (t *SQLiteTracer) Func(ctx sim.HookCtx) {
	snap, ok := ctx.Item.(pipeline.Snapshot)
	if !ok {
		return
	}

	t.rows = append(t.rows, t.rowsOf(snap)...)
	if len(t.rows) >= t.batchSize {
		if err := t.Flush(); err != nil {
			panic(err)
		}
	}
}

func (t *SQLiteTracer) rowsOf(snap pipeline.Snapshot) []Row {
	stall := snap.Stall.String()
	row := func(latch string, valid bool, seq uint64, pc, word uint32, inst *insts.Instruction) Row {
		r := Row{
			Cycle:           snap.Cycle,
			Latch:           latch,
			Valid:           valid,
			Seq:             seq,
			PC:              pc,
			InstructionWord: word,
			Stall:           stall,
			Forwarding:      snap.Forwarding,
		}

		if valid {
			if inst == nil {
				inst = t.decoder.Decode(word)
			}
			r.Disasm = insts.Disassemble(inst, pc)
		}

		return r
	}

	return []Row{
		row("IF/ID", snap.IFID.Valid, snap.IFID.Seq, snap.IFID.PC, snap.IFID.InstructionWord, nil),
		row("ID/EX", snap.IDEX.Valid, snap.IDEX.Seq, snap.IDEX.PC, snap.IDEX.InstructionWord, snap.IDEX.Inst),
		row("EX/MEM", snap.EXMEM.Valid, snap.EXMEM.Seq, snap.EXMEM.PC, snap.EXMEM.InstructionWord, snap.EXMEM.Inst),
		row("MEM/WB", snap.MEMWB.Valid, snap.MEMWB.Seq, snap.MEMWB.PC, snap.MEMWB.InstructionWord, snap.MEMWB.Inst),
	}
}

// Flush writes all the buffered rows to the database.
func (t *SQLiteTracer) Flush() error {
	if len(t.rows) == 0 || t.DB == nil {
		return nil
	}

	tx, err := t.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin trace transaction: %w", err)
	}

	stmt := tx.Stmt(t.statement)
	for _, r := range t.rows {
		_, err := stmt.Exec(r.Cycle, r.Latch, r.Valid, r.Seq, r.PC,
			r.InstructionWord, r.Disasm, r.Stall, r.Forwarding)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert trace row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trace rows: %w", err)
	}

	t.rows = nil

	return nil
}

// Close flushes the buffered rows and closes the database. Closing twice is
// a no-op.
func (t *SQLiteTracer) Close() error {
	if t.DB == nil {
		return nil
	}

	if err := t.Flush(); err != nil {
		return err
	}

	err := t.DB.Close()
	t.DB = nil
	t.statement = nil

	return err
}

// ReadRows returns every row in a trace database ordered by cycle.
func ReadRows(path string) ([]Row, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT cycle, latch, valid, seq, pc, word, disasm, stall, forwarding
		FROM pipeline
		ORDER BY cycle, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trace: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var r Row
		err := rows.Scan(&r.Cycle, &r.Latch, &r.Valid, &r.Seq, &r.PC,
			&r.InstructionWord, &r.Disasm, &r.Stall, &r.Forwarding)
		if err != nil {
			return nil, fmt.Errorf("failed to read trace row: %w", err)
		}
		result = append(result, r)
	}

	return result, rows.Err()
}
