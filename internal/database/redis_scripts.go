package database

// Lua scripts run atomically inside redis, which gives the two primitives the
// code service relies on.
const (
	// createCodeScript writes the hash only when the key is absent.
	// KEYS: [1] code key
	// ARGV: field/value pairs
	// Returns: 1 created, 0 key exists
	createCodeScript = `
		if redis.call('EXISTS', KEYS[1]) == 1 then
			return 0
		end
		redis.call('HSET', KEYS[1], unpack(ARGV))
		return 1
	`

	// markUsedScript flips status only when it still holds the expected value.
	// KEYS: [1] code key
	// ARGV: [1] expected status, [2] new status, [3] used_by, [4] used_at
	// Returns: 1 updated, 0 status differs or key missing
	markUsedScript = `
		local status = redis.call('HGET', KEYS[1], 'status')
		if status ~= ARGV[1] then
			return 0
		end
		redis.call('HSET', KEYS[1], 'status', ARGV[2], 'used_by', ARGV[3], 'used_at', ARGV[4])
		return 1
	`
)
