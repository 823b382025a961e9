package agent

// Collect drains ch and returns every event in order together with the
// first error seen. It reads until ch is closed.
func Collect(ch <-chan StreamChunk) ([]Event, error) {
	var (
		events   []Event
		firstErr error
	)
	for chunk := range ch {
		if chunk.Err != nil {
			if firstErr == nil {
				firstErr = chunk.Err
			}
			continue
		}
		if chunk.Event != nil {
			events = append(events, chunk.Event)
		}
	}
	return events, firstErr
}
