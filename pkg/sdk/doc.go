// Package talentmatch embeds the candidate search pipeline in a Go program
// without running the HTTP server.
//
// Profiles are stored in Redis or Valkey with the search and JSON modules,
// or in process memory for tests and small tools. The caller supplies the
// embedding model and, optionally, the generative model used for explanations.
//
//	client, _ := talentmatch.New(ctx,
//	    talentmatch.WithValkey("localhost:6379", ""),
//	    talentmatch.WithEmbedder(myEmbedder),
//	    talentmatch.WithCompleter(myCompleter),
//	    talentmatch.WithVectorDimensions(768),
//	)
//	defer client.Close()
//
//	summary, _ := client.Import(ctx, []talentmatch.Candidate{{Username: "octocat", Skills: []string{"Go"}}})
//	res, _ := client.Search(ctx, "senior Go engineers in Berlin", nil)
//
// Without a completer, Search still returns ranked candidates and a nil Analysis.
package talentmatch
