package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"time"
)

// PutEmbedding stores the single live vector for a job, replacing any prior
// one. Vectors are float32 little-endian blobs.
func PutEmbedding(ctx context.Context, db *sql.DB, jobID int64, modelVersion string, vec []float32) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO embeddings (job_id, model_version, dim, vector, updated_at)
VALUES (?,?,?,?,?)
ON CONFLICT(job_id) DO UPDATE SET
  model_version = excluded.model_version,
  dim = excluded.dim,
  vector = excluded.vector,
  updated_at = excluded.updated_at;`,
		jobID, modelVersion, len(vec), encodeVector(vec),
		time.Now().UTC().Format(time.RFC3339))
	return err
}

func GetEmbedding(ctx context.Context, db *sql.DB, jobID int64) (vec []float32, modelVersion string, err error) {
	var blob []byte
	err = db.QueryRowContext(ctx, `
SELECT vector, model_version FROM embeddings WHERE job_id = ?;`, jobID).
		Scan(&blob, &modelVersion)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return decodeVector(blob), modelVersion, nil
}

func DeleteEmbedding(ctx context.Context, db *sql.DB, jobID int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM embeddings WHERE job_id = ?;`, jobID)
	return err
}

// WalkEmbeddings streams stored vectors of one model version in ascending
// job-id order, the order index rebuilds consume.
func WalkEmbeddings(ctx context.Context, db *sql.DB, modelVersion string, fn func(jobID int64, vec []float32) error) error {
	rows, err := db.QueryContext(ctx, `
SELECT job_id, vector FROM embeddings WHERE model_version = ? ORDER BY job_id;`, modelVersion)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return err
		}
		if err := fn(id, decodeVector(blob)); err != nil {
			return err
		}
	}
	return rows.Err()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
