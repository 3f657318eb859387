package service

import "context"

type testTxRepos struct {
	documents DocumentRepository
	chunks    ChunkRepository
}

func (t *testTxRepos) Documents() DocumentRepository {
	return t.documents
}

func (t *testTxRepos) Chunks() ChunkRepository {
	return t.chunks
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
	err    error
}

// WithTx runs fn and returns its error; err, when set, replaces a nil
// result to simulate a failed commit.
func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	if err := fn(t.repos); err != nil {
		return err
	}
	return t.err
}
