package asyncclient

// request is one in-flight POST, from PostAsync until its Future resolves.
type request struct {
	host    string
	port    int
	path    string
	body    []byte
	headers map[string]string
	future  *Future
}
