// Package slotdex embeds the slotdex engine in a Go program without the HTTP server.
//
// It exposes fuzzy search over analyzer-grouped events and coupon slot
// recommendation on top of the shared scheduling model.
//
//	client, _ := slotdex.New(ctx,
//	    slotdex.WithModelPath("models/slot_model.json"),
//	    slotdex.WithRedis("localhost:6379", ""),
//	)
//	defer client.Close()
//
//	hits, _ := client.Search(ctx, events, []string{"스타벅스", "쿠폰"})
//	plan, _ := client.Recommend(ctx, events, 7)
//	for _, day := range plan.Days {
//	    fmt.Println(day.Date, day.Weekday, len(day.Recommended))
//	}
//
// Free-text queries need a keyword provider:
//
//	client, _ := slotdex.New(ctx, slotdex.WithKeywordExtractor(myExtractor))
//	hits, _ := client.SearchPhrase(ctx, events, "다음 주 부산 가는 기차")
package slotdex
