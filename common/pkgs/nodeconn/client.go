package nodeconn

// Client is the hub-side typed view of one node connection. The per-op
// methods live next to their message definitions.
type Client struct {
	conn *Conn
}

func NewClient(conn *Conn) *Client {
	return &Client{conn: conn}
}

func (c *Client) Conn() *Conn {
	return c.conn
}
