package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"docqa/internal/config"
	"docqa/internal/models"
)

// documentRow is the pgvector-backed corpus table.
type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID             int64     `bun:"id,pk,autoincrement"`
	Content        string    `bun:"content,notnull"`
	Embedding      []float32 `bun:"embedding,notnull,type:vector(768)"`
	SourceFilename string    `bun:"source_filename,notnull"`
	PageNumber     int       `bun:"page_number"`
	ChunkID        int       `bun:"chunk_id"`
}

// PostgresStore keeps the corpus in a Postgres table with a pgvector
// column, ordered by the `<->` distance operator on search.
type PostgresStore struct {
	db         *bun.DB
	vectorSize int
}

// NewPostgresStore connects to Postgres and prepares the corpus table.
func NewPostgresStore(ctx context.Context, cfg *config.PostgresConfig) (*PostgresStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithPassword(cfg.Password),
	))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	s := &PostgresStore{db: db, vectorSize: cfg.VectorSize}
	if _, err := db.NewCreateTable().Model((*documentRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Replace(ctx context.Context, docs []models.ChunkEmbedding) error {
	for _, doc := range docs {
		if len(doc.Embedding) != s.vectorSize {
			return fmt.Errorf("embedding size %d does not match vector column size %d", len(doc.Embedding), s.vectorSize)
		}
	}

	if _, err := s.db.NewDropTable().Model((*documentRow)(nil)).IfExists().Exec(ctx); err != nil {
		return err
	}
	if _, err := s.db.NewCreateTable().Model((*documentRow)(nil)).Exec(ctx); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	rows := make([]documentRow, len(docs))
	for i, doc := range docs {
		rows[i] = documentRow{
			Content:        doc.Content,
			Embedding:      doc.Embedding,
			SourceFilename: doc.SourceFilename,
			PageNumber:     doc.PageNumber,
			ChunkID:        doc.ChunkID,
		}
	}
	_, err := s.db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

func (s *PostgresStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]SearchResult, error) {
	var rows []documentRow
	err := s.db.NewSelect().
		Model(&rows).
		Column("content", "source_filename", "page_number", "chunk_id").
		OrderExpr("embedding <-> ?", queryEmbedding).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, len(rows))
	for i, row := range rows {
		out[i] = SearchResult{
			Content:        row.Content,
			SourceFilename: row.SourceFilename,
			PageNumber:     row.PageNumber,
			ChunkID:        row.ChunkID,
		}
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*documentRow)(nil)).Count(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
