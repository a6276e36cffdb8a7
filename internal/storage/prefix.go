package storage

// PrefixDB wraps a DB and prepends a fixed prefix to all keys, giving
// each consumer its own namespace in one underlying database.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB creates a new PrefixDB wrapping inner with the given prefix.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	return &PrefixDB{inner: inner, prefix: append([]byte{}, prefix...)}
}

func (p *PrefixDB) key(key []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(key))
	out = append(out, p.prefix...)
	return append(out, key...)
}

func (p *PrefixDB) Get(key []byte) ([]byte, error) { return p.inner.Get(p.key(key)) }
func (p *PrefixDB) Put(key, value []byte) error    { return p.inner.Put(p.key(key), value) }
func (p *PrefixDB) Delete(key []byte) error        { return p.inner.Delete(p.key(key)) }
func (p *PrefixDB) Has(key []byte) (bool, error)   { return p.inner.Has(p.key(key)) }

// ForEach iterates over keys with the given prefix inside the namespace.
// Keys passed to fn have the namespace prefix stripped.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return p.inner.ForEach(p.key(prefix), func(key, value []byte) error {
		return fn(key[len(p.prefix):], value)
	})
}

// DeleteAll removes every key in the namespace.
func (p *PrefixDB) DeleteAll() error {
	b := p.NewBatch()
	err := p.ForEach(nil, func(key, _ []byte) error {
		return b.Delete(key)
	})
	if err != nil {
		return err
	}
	return b.Commit()
}

// Close does nothing; the inner DB owns its lifecycle.
func (p *PrefixDB) Close() error {
	return nil
}

// NewBatch returns a batch inside the namespace. It is atomic when the
// inner DB implements Batcher.
func (p *PrefixDB) NewBatch() Batch {
	if batcher, ok := p.inner.(Batcher); ok {
		return &prefixBatch{inner: batcher.NewBatch(), db: p}
	}
	return &prefixBatch{inner: &sequentialBatch{db: p.inner}, db: p}
}

type prefixBatch struct {
	inner Batch
	db    *PrefixDB
}

func (b *prefixBatch) Put(key, value []byte) error { return b.inner.Put(b.db.key(key), value) }
func (b *prefixBatch) Delete(key []byte) error     { return b.inner.Delete(b.db.key(key)) }
func (b *prefixBatch) Commit() error               { return b.inner.Commit() }

// sequentialBatch buffers writes and applies them one by one.
type sequentialBatch struct {
	db  DB
	ops []memoryOp
}

func (b *sequentialBatch) Put(key, value []byte) error {
	b.ops = append(b.ops, memoryOp{key: string(key), value: append([]byte{}, value...)})
	return nil
}

func (b *sequentialBatch) Delete(key []byte) error {
	b.ops = append(b.ops, memoryOp{key: string(key)})
	return nil
}

func (b *sequentialBatch) Commit() error {
	for _, op := range b.ops {
		var err error
		if op.value == nil {
			err = b.db.Delete([]byte(op.key))
		} else {
			err = b.db.Put([]byte(op.key), op.value)
		}
		if err != nil {
			return err
		}
	}
	b.ops = nil
	return nil
}
