package intellihire

// Close releases the store. Later calls to any operation return ErrClosed.
// Uncommitted changes are not written; call Commit first to keep them.
//
// Close also closes the blob store when it implements io.Closer, releasing
// the directory lock of a blobstore.LocalStore. Closing twice is a no-op.
func (s *Store) Close() error {
	if s == nil || s.closed.Swap(true) {
		return nil
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
