// Package coursefind embeds the course search engine in a Go program.
//
// A Client loads a course catalog, encodes it once and answers free-text
// queries with the most similar courses, best first.
//
//	client, _ := coursefind.New(ctx, coursefind.WithCorpusFile("data/courses.json"))
//	defer client.Close()
//	results, _ := client.Search(ctx, "machine learning with python", 5)
//	for _, r := range results {
//	    fmt.Printf("%d. %s (%.2f%%)\n", r.Rank, r.Title, r.Relevance)
//	}
//
// By default courses are encoded by the built-in hashing encoder. Use
// WithOpenAI for an OpenAI-compatible embeddings server, or WithEmbedder to
// plug in any encoder.
package coursefind
