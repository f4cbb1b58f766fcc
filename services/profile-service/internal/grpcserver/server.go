//go:build protogen

package grpcserver

import (
	"context"

	"github.com/tutorhub/tutorhub/libs/db"
	profilev1 "github.com/tutorhub/tutorhub/protos/gen/profile/v1"
	"github.com/tutorhub/tutorhub/services/profile-service/internal/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type server struct {
	profilev1.UnimplementedProfileServiceServer
	pool *db.Pool
	repo *storage.Repository
}

func Register(srv *grpc.Server, pool *db.Pool, repo *storage.Repository) {
	profilev1.RegisterProfileServiceServer(srv, &server{pool: pool, repo: repo})
}

func (s *server) GetDaySchedule(ctx context.Context, req *profilev1.DayScheduleRequest) (*profilev1.DayScheduleResponse, error) {
	teacherID := req.GetTeacherId()
	date := req.GetDate()
	if teacherID == "" || date == "" {
		return nil, status.Error(codes.InvalidArgument, "teacher_id and date are required")
	}

	timeRanges, timezone, ok, err := s.repo.DaySchedule(ctx, teacherID, date)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to load schedule")
	}
	if !ok {
		return &profilev1.DayScheduleResponse{}, nil
	}
	return &profilev1.DayScheduleResponse{
		TimeRanges: timeRanges,
		Timezone:   timezone,
	}, nil
}

func (s *server) GetTeacher(ctx context.Context, req *profilev1.TeacherRequest) (*profilev1.TeacherResponse, error) {
	if req.GetTeacherId() == "" {
		return nil, status.Error(codes.InvalidArgument, "teacher_id is required")
	}
	p, err := s.repo.GetTeacher(ctx, req.GetTeacherId())
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, status.Error(codes.NotFound, "teacher not found")
		}
		return nil, status.Error(codes.Internal, "failed to load teacher")
	}
	return &profilev1.TeacherResponse{
		UserId:       p.UserID,
		Name:         p.Name,
		Bio:          p.Bio,
		Subjects:     p.Subjects,
		Timezone:     p.Timezone,
		TotalCourses: int32(p.TotalCourses),
		UpdatedAt:    timestamppb.New(p.UpdatedAt),
	}, nil
}
