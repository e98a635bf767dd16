package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/microearn/internal/model"
)

type mockNotificationLister struct {
	listByEmailFn func(ctx context.Context, email string) ([]*model.Notification, error)
}

func (m *mockNotificationLister) ListByEmail(ctx context.Context, email string) ([]*model.Notification, error) {
	return m.listByEmailFn(ctx, email)
}

type mockAdminActivityRepo struct {
	listFn func(ctx context.Context) ([]*model.AdminActivity, error)
}

func (m *mockAdminActivityRepo) List(ctx context.Context) ([]*model.AdminActivity, error) {
	return m.listFn(ctx)
}

func TestListNotifications_FiltersByCaller(t *testing.T) {
	var gotEmail string
	svc := NewService(&mockNotificationLister{listByEmailFn: func(ctx context.Context, email string) ([]*model.Notification, error) {
		gotEmail = email
		return []*model.Notification{{ID: "n-1", ToEmail: email}}, nil
	}}, nil)

	notifications, err := svc.ListNotifications(context.Background(), "buyer@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if gotEmail != "buyer@example.com" {
		t.Errorf("queried email = %q", gotEmail)
	}
	if len(notifications) != 1 {
		t.Errorf("notifications = %v", notifications)
	}
}

func TestListNotifications_StoreError(t *testing.T) {
	svc := NewService(&mockNotificationLister{listByEmailFn: func(ctx context.Context, email string) ([]*model.Notification, error) {
		return nil, errors.New("boom")
	}}, nil)

	if _, err := svc.ListNotifications(context.Background(), "x@example.com"); err == nil {
		t.Fatal("expected error")
	}
}

func TestListAdminActivities(t *testing.T) {
	svc := NewService(nil, &mockAdminActivityRepo{listFn: func(ctx context.Context) ([]*model.AdminActivity, error) {
		return []*model.AdminActivity{{ID: "a-1", Action: model.AdminActionDeleteUser}}, nil
	}})

	activities, err := svc.ListAdminActivities(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(activities) != 1 || activities[0].Action != model.AdminActionDeleteUser {
		t.Errorf("activities = %+v", activities)
	}
}
