package client

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"sync"

	"tris-server/pkg/logger"
)

// Client is the interactive TCP client. A reader goroutine prints every
// server line while the main loop forwards stdin lines to the server.
type Client struct {
	serverAddr string
	conn       net.Conn
	display    *Display
	logger     *logger.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient creates a client for the given server address
func NewClient(serverAddr string) *Client {
	return &Client{
		serverAddr: serverAddr,
		display:    NewDisplay(),
		logger:     logger.Client,
		done:       make(chan struct{}),
	}
}

// Start connects and runs until the server closes the connection or
// stdin ends
func (c *Client) Start() error {
	c.display.PrintBanner()

	conn, err := net.Dial("tcp", c.serverAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.serverAddr, err)
	}
	c.conn = conn
	c.logger.Info("Connected to %s", c.serverAddr)

	go c.readLoop()

	writer := bufio.NewWriter(conn)
	stdin := bufio.NewScanner(os.Stdin)
	for stdin.Scan() {
		select {
		case <-c.done:
			return nil
		default:
		}

		line := stdin.Text()
		if line == "" {
			continue
		}
		if _, err := writer.WriteString(line + "\n"); err != nil {
			break
		}
		if err := writer.Flush(); err != nil {
			break
		}
	}

	c.Stop()
	<-c.done
	return nil
}

// readLoop prints server lines until the connection closes
func (c *Client) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		c.display.PrintServerLine(scanner.Text())
	}
	c.display.PrintInfo("Connection closed by server")
	c.closeOnce.Do(func() {
		c.conn.Close()
		close(c.done)
	})
}

// Stop closes the connection
func (c *Client) Stop() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			c.conn.Close()
		}
		close(c.done)
	})
}
