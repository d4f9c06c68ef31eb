// Package dedupe remembers which source messages were already republished so
// a later scan cycle does not publish them twice.
//
// # Entries
//
// Each entry maps "<channelID>_<messageID>" to the unix second it was
// recorded. An entry is live while its age is below the configured TTL.
// Lookups drop expired entries lazily; every Insert also sweeps expired
// entries and, when more than max_size remain, keeps only the max_size most
// recent ones.
//
// # Persistence
//
// The cache is written through to a Store after every Insert. Two backends
// exist:
//
//   - FileStore: a JSON object {"<key>": <unixSeconds>}, replaced atomically
//     via temp file and rename.
//   - SQLiteStore: a single "seen" table, replaced inside one transaction.
//
// A missing or corrupt store never fails startup; the cache starts empty.
//
// # Usage
//
//	store, err := dedupe.OpenStore("json", "data/cache/messages.json")
//	if err != nil {
//	    return err
//	}
//	cache := dedupe.Open(store, 24*time.Hour, 1000)
//	if !cache.Exists(roomID, eventID) {
//	    // publish, then
//	    _ = cache.Insert(roomID, eventID)
//	}
package dedupe
