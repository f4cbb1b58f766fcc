//go:build protogen

package schedule

import (
	"context"
	"time"

	"github.com/tutorhub/tutorhub/libs/grpcx"
	profilev1 "github.com/tutorhub/tutorhub/protos/gen/profile/v1"
)

type grpcProvider struct {
	client profilev1.ProfileServiceClient
}

// NewGRPCProvider prefers the profile-service gRPC API when an address is
// configured. Returns (nil, nil) when it is not.
func NewGRPCProvider(addr string) (Provider, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: profilev1.NewProfileServiceClient(conn)}, nil
}

func (p *grpcProvider) DaySchedule(ctx context.Context, teacherID, date string) (DaySchedule, bool, error) {
	resp, err := p.client.GetDaySchedule(ctx, &profilev1.DayScheduleRequest{
		TeacherId: teacherID,
		Date:      date,
	})
	if err != nil {
		return DaySchedule{}, false, err
	}
	if len(resp.GetTimeRanges()) == 0 {
		return DaySchedule{}, false, nil
	}
	return DaySchedule{
		TimeRanges: resp.GetTimeRanges(),
		Timezone:   resp.GetTimezone(),
	}, true, nil
}
