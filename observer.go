package ftp

// Observer receives synchronous, sequential notifications of control-
// connection activity: a TCP connect, each outgoing command, each reply,
// and each completed directory listing (spec 4.7). The commands that open
// a data connection (PASV, EPSV, PORT, EPRT) and their replies are not
// reported. Observers must be fast and must not panic — the client makes no
// attempt to isolate a misbehaving one.
type Observer interface {
	OnConnected(host string, port int)
	OnRequest(cmd string)
	OnReply(reply Reply)
	OnFileList(text string)
}

// AddObserver registers o. Registration order is dispatch order.
func (c *Client) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

// RemoveObserver unregisters o by identity. It is safe to call from inside
// an Observer callback: notification always dispatches over a snapshot of
// the list taken before iterating, so a removal made mid-callback never
// mutates the slice being ranged over.
func (c *Client) RemoveObserver(o Observer) {
	for i, existing := range c.observers {
		if existing == o {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			return
		}
	}
}

func (c *Client) observerSnapshot() []Observer {
	if len(c.observers) == 0 {
		return nil
	}
	snapshot := make([]Observer, len(c.observers))
	copy(snapshot, c.observers)
	return snapshot
}

// notifyConnected fires after the TCP connect but before the greeting is
// read.
func (c *Client) notifyConnected(host string, port int) {
	for _, o := range c.observerSnapshot() {
		o.OnConnected(host, port)
	}
}

// notifyRequest fires before each command is written. cmd has already had
// PASS masking applied by the caller.
func (c *Client) notifyRequest(cmd string) {
	for _, o := range c.observerSnapshot() {
		o.OnRequest(cmd)
	}
}

// notifyReply fires after each reply is read.
func (c *Client) notifyReply(reply Reply) {
	for _, o := range c.observerSnapshot() {
		o.OnReply(reply)
	}
}

// notifyFileList fires once, after a LIST/NLST data-command flow has
// finished reading the full listing text.
func (c *Client) notifyFileList(text string) {
	for _, o := range c.observerSnapshot() {
		o.OnFileList(text)
	}
}
