package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mindful-paint/internal/relay"
	"mindful-paint/internal/ui"
)

var flagRoomsServer string

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List the active rooms of a relay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rooms, err := fetchRooms(flagRoomsServer)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RoomsView(rooms))
		return nil
	},
}

func init() {
	roomsCmd.Flags().StringVarP(&flagRoomsServer, "server", "s", "http://localhost:3000", "relay server address")
}

func fetchRooms(server string) ([]relay.RoomInfo, error) {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Get(httpBase(server) + "/api/rooms")
	if err != nil {
		return nil, fmt.Errorf("fetch rooms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch rooms: unexpected status %s", resp.Status)
	}
	var rooms []relay.RoomInfo
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	return rooms, nil
}
