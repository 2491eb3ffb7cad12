package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/taskassign/taskassign-api/internal/models"
	"github.com/taskassign/taskassign-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TaskServiceTestSuite defines the test suite for TaskService
type TaskServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *TaskService

	lead     *models.User
	assignee *models.User
	member   *models.User
	outsider *models.User
	group    *models.Group
}

// SetupTest runs before each test
func (suite *TaskServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupInvite{},
		&models.Task{},
	)
	suite.Require().NoError(err)

	groupRepo := repository.NewGroupRepository(suite.db)
	taskRepo := repository.NewTaskRepository(suite.db)
	access := NewAccessService(groupRepo)
	suite.service = NewTaskService(taskRepo, groupRepo, access)

	suite.lead = suite.createUser("lead", "lead@example.com")
	suite.assignee = suite.createUser("worker", "worker@example.com")
	suite.member = suite.createUser("member", "member@example.com")
	suite.outsider = suite.createUser("outsider", "outsider@example.com")

	suite.group = &models.Group{Name: "Backend", LeadID: suite.lead.ID}
	suite.Require().NoError(suite.db.Create(suite.group).Error)

	for _, u := range []*models.User{suite.assignee, suite.member} {
		m := &models.GroupMember{GroupID: suite.group.ID, MemberID: u.ID, JoinedAt: time.Now()}
		suite.Require().NoError(suite.db.Create(m).Error)
	}
}

// TearDownTest runs after each test
func (suite *TaskServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskServiceTestSuite) createUser(username, email string) *models.User {
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "hashedpassword",
		DisplayName:  username,
		Role:         models.DefaultUserRole,
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *TaskServiceTestSuite) createTask(title string) *models.Task {
	task, err := suite.service.CreateTask(CreateTaskInput{
		Title:         title,
		Description:   "Test Description",
		AssignedTo:    suite.assignee.Username,
		GroupID:       suite.group.ID,
		DueDate:       time.Now().Add(48 * time.Hour),
		ActorID:       suite.lead.ID,
		ActorUsername: suite.lead.Username,
	})
	suite.Require().NoError(err)
	return task
}

func strPtr(s string) *string { return &s }

func (suite *TaskServiceTestSuite) TestCapabilities() {
	task := suite.createTask("Capability check")

	leadCaps := suite.service.CapabilitiesFor(task, suite.lead.ID, suite.lead.Username)
	suite.True(leadCaps.CanEditContent)
	suite.True(leadCaps.CanUpdateStatus)
	suite.False(leadCaps.CanUpdateNote)

	assigneeCaps := suite.service.CapabilitiesFor(task, suite.assignee.ID, suite.assignee.Username)
	suite.False(assigneeCaps.CanEditContent)
	suite.True(assigneeCaps.CanUpdateStatus)
	suite.True(assigneeCaps.CanUpdateNote)

	memberCaps := suite.service.CapabilitiesFor(task, suite.member.ID, suite.member.Username)
	suite.False(memberCaps.CanEditContent)
	suite.False(memberCaps.CanUpdateStatus)
	suite.False(memberCaps.CanUpdateNote)
}

func (suite *TaskServiceTestSuite) TestAssigneeMatchIsCaseInsensitive() {
	task := suite.createTask("Case check")

	caps := suite.service.CapabilitiesFor(task, suite.assignee.ID, "WORKER")
	suite.True(caps.CanUpdateNote)
}

func (suite *TaskServiceTestSuite) TestCreateTaskLeadOnly() {
	_, err := suite.service.CreateTask(CreateTaskInput{
		Title:         "Nope",
		Description:   "d",
		AssignedTo:    suite.assignee.Username,
		GroupID:       suite.group.ID,
		DueDate:       time.Now().Add(time.Hour),
		ActorID:       suite.member.ID,
		ActorUsername: suite.member.Username,
	})
	suite.Require().ErrorIs(err, ErrTaskPermissionDenied)

	// An outsider cannot even learn the group exists
	_, err = suite.service.CreateTask(CreateTaskInput{
		Title:         "Nope",
		Description:   "d",
		AssignedTo:    suite.assignee.Username,
		GroupID:       suite.group.ID,
		DueDate:       time.Now().Add(time.Hour),
		ActorID:       suite.outsider.ID,
		ActorUsername: suite.outsider.Username,
	})
	suite.Require().ErrorIs(err, ErrGroupNotFound)
}

func (suite *TaskServiceTestSuite) TestCreateTaskValidation() {
	base := CreateTaskInput{
		Title:         "Task",
		Description:   "d",
		AssignedTo:    suite.assignee.Username,
		GroupID:       suite.group.ID,
		DueDate:       time.Now().Add(time.Hour),
		ActorID:       suite.lead.ID,
		ActorUsername: suite.lead.Username,
	}

	in := base
	in.Title = "  "
	_, err := suite.service.CreateTask(in)
	suite.Require().ErrorIs(err, ErrTitleRequired)

	in = base
	in.AssignedTo = "stranger"
	_, err = suite.service.CreateTask(in)
	suite.Require().ErrorIs(err, ErrInvalidAssignee)

	in = base
	in.Status = "DONE"
	_, err = suite.service.CreateTask(in)
	suite.Require().ErrorIs(err, ErrInvalidTaskStatus)

	in = base
	in.Priority = "URGENT"
	_, err = suite.service.CreateTask(in)
	suite.Require().ErrorIs(err, ErrInvalidTaskPriority)
}

func (suite *TaskServiceTestSuite) TestCreateTaskDefaultsAndCanonicalAssignee() {
	task, err := suite.service.CreateTask(CreateTaskInput{
		Title:         "Defaults",
		Description:   "d",
		AssignedTo:    "  WORKER ",
		GroupID:       suite.group.ID,
		DueDate:       time.Now().Add(time.Hour),
		ActorID:       suite.lead.ID,
		ActorUsername: suite.lead.Username,
	})
	suite.Require().NoError(err)

	suite.Equal(models.TaskStatusNew, task.Status)
	suite.Equal(models.TaskPriorityMedium, task.Priority)
	// Stored assignee is the canonical username, not the submitted casing
	suite.Equal("worker", task.AssignedTo)
	suite.Equal("lead", task.CreatedBy)
}

func (suite *TaskServiceTestSuite) TestLeadCanAssignToThemselves() {
	task, err := suite.service.CreateTask(CreateTaskInput{
		Title:         "Self-assigned",
		Description:   "d",
		AssignedTo:    suite.lead.Username,
		GroupID:       suite.group.ID,
		DueDate:       time.Now().Add(time.Hour),
		ActorID:       suite.lead.ID,
		ActorUsername: suite.lead.Username,
	})
	suite.Require().NoError(err)

	caps := suite.service.CapabilitiesFor(task, suite.lead.ID, suite.lead.Username)
	suite.True(caps.CanEditContent)
	suite.True(caps.CanUpdateNote)
}

func (suite *TaskServiceTestSuite) TestGetTaskHidesInaccessible() {
	task := suite.createTask("Hidden")

	_, err := suite.service.GetTask(task.ID, suite.outsider.ID)
	suite.Require().ErrorIs(err, ErrTaskNotFound)

	_, err = suite.service.GetTask(99999, suite.lead.ID)
	suite.Require().ErrorIs(err, ErrTaskNotFound)

	got, err := suite.service.GetTask(task.ID, suite.member.ID)
	suite.Require().NoError(err)
	suite.Equal(task.ID, got.ID)
}

func (suite *TaskServiceTestSuite) TestUpdateContentRequiresLead() {
	task := suite.createTask("Content")

	_, err := suite.service.UpdateTask(task.ID, suite.assignee.ID, suite.assignee.Username, UpdateTaskInput{
		Title: strPtr("Renamed"),
	})
	suite.Require().ErrorIs(err, ErrTaskPermissionDenied)

	updated, err := suite.service.UpdateTask(task.ID, suite.lead.ID, suite.lead.Username, UpdateTaskInput{
		Title:    strPtr("Renamed"),
		Priority: func() *models.TaskPriority { p := models.TaskPriorityHigh; return &p }(),
	})
	suite.Require().NoError(err)
	suite.Equal("Renamed", updated.Title)
	suite.Equal(models.TaskPriorityHigh, updated.Priority)
}

func (suite *TaskServiceTestSuite) TestUpdateStatusByLeadOrAssignee() {
	task := suite.createTask("Status")

	updated, err := suite.service.UpdateStatus(task.ID, suite.assignee.ID, suite.assignee.Username, models.TaskStatusInProgress)
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusInProgress, updated.Status)

	updated, err = suite.service.UpdateStatus(task.ID, suite.lead.ID, suite.lead.Username, models.TaskStatusUAT)
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusUAT, updated.Status)

	_, err = suite.service.UpdateStatus(task.ID, suite.member.ID, suite.member.Username, models.TaskStatusClosed)
	suite.Require().ErrorIs(err, ErrTaskPermissionDenied)

	_, err = suite.service.UpdateStatus(task.ID, suite.lead.ID, suite.lead.Username, "DONE")
	suite.Require().ErrorIs(err, ErrInvalidTaskStatus)
}

func (suite *TaskServiceTestSuite) TestUpdateNoteAssigneeOnly() {
	task := suite.createTask("Note")

	updated, err := suite.service.UpdateNote(task.ID, suite.assignee.ID, suite.assignee.Username, strPtr("halfway there"))
	suite.Require().NoError(err)
	suite.Require().NotNil(updated.Note)
	suite.Equal("halfway there", *updated.Note)

	// The lead owns the content but not the note
	_, err = suite.service.UpdateNote(task.ID, suite.lead.ID, suite.lead.Username, strPtr("nope"))
	suite.Require().ErrorIs(err, ErrTaskPermissionDenied)

	// A blank note clears the field
	updated, err = suite.service.UpdateNote(task.ID, suite.assignee.ID, suite.assignee.Username, strPtr("  "))
	suite.Require().NoError(err)
	suite.Nil(updated.Note)
}

func (suite *TaskServiceTestSuite) TestUpdateNoteViaPartialUpdate() {
	task := suite.createTask("Note via patch")

	// The lead touching the note through the general update path is still denied
	_, err := suite.service.UpdateTask(task.ID, suite.lead.ID, suite.lead.Username, UpdateTaskInput{
		Note: strPtr("sneaky"),
	})
	suite.Require().ErrorIs(err, ErrTaskPermissionDenied)

	updated, err := suite.service.UpdateTask(task.ID, suite.assignee.ID, suite.assignee.Username, UpdateTaskInput{
		Note: strPtr("from patch"),
	})
	suite.Require().NoError(err)
	suite.Require().NotNil(updated.Note)
	suite.Equal("from patch", *updated.Note)

	updated, err = suite.service.UpdateTask(task.ID, suite.assignee.ID, suite.assignee.Username, UpdateTaskInput{
		ClearNote: true,
	})
	suite.Require().NoError(err)
	suite.Nil(updated.Note)
}

func (suite *TaskServiceTestSuite) TestDeleteTaskLeadOnly() {
	task := suite.createTask("Doomed")

	err := suite.service.DeleteTask(task.ID, suite.assignee.ID)
	suite.Require().ErrorIs(err, ErrTaskPermissionDenied)

	err = suite.service.DeleteTask(task.ID, suite.outsider.ID)
	suite.Require().ErrorIs(err, ErrTaskNotFound)

	suite.Require().NoError(suite.service.DeleteTask(task.ID, suite.lead.ID))

	_, err = suite.service.GetTask(task.ID, suite.lead.ID)
	suite.Require().ErrorIs(err, ErrTaskNotFound)
}

func (suite *TaskServiceTestSuite) TestListTasksScopedToAccessibleGroups() {
	suite.createTask("Visible one")
	suite.createTask("Visible two")

	tasks, total, err := suite.service.ListTasks(ListTasksInput{
		UserID: suite.member.ID, Page: 1, PageSize: 10,
	})
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
	suite.Len(tasks, 2)

	// An outsider sees nothing
	tasks, total, err = suite.service.ListTasks(ListTasksInput{
		UserID: suite.outsider.ID, Page: 1, PageSize: 10,
	})
	suite.Require().NoError(err)
	suite.Zero(total)
	suite.Empty(tasks)

	// Filtering by a group the caller cannot access yields empty, not an error
	otherGroup := &models.Group{Name: "Secret", LeadID: suite.outsider.ID}
	suite.Require().NoError(suite.db.Create(otherGroup).Error)

	tasks, total, err = suite.service.ListTasks(ListTasksInput{
		UserID: suite.member.ID, GroupID: &otherGroup.ID, Page: 1, PageSize: 10,
	})
	suite.Require().NoError(err)
	suite.Zero(total)
	suite.Empty(tasks)
}

func (suite *TaskServiceTestSuite) TestListTasksPagination() {
	for _, spec := range []struct {
		title string
		due   time.Duration
	}{
		{"Due first", 24 * time.Hour},
		{"Due second", 48 * time.Hour},
		{"Due third", 72 * time.Hour},
	} {
		_, err := suite.service.CreateTask(CreateTaskInput{
			Title:         spec.title,
			Description:   "d",
			AssignedTo:    suite.assignee.Username,
			GroupID:       suite.group.ID,
			DueDate:       time.Now().Add(spec.due),
			ActorID:       suite.lead.ID,
			ActorUsername: suite.lead.Username,
		})
		suite.Require().NoError(err)
	}

	tasks, total, err := suite.service.ListTasks(ListTasksInput{
		UserID: suite.lead.ID, Page: 2, PageSize: 1,
	})
	suite.Require().NoError(err)
	suite.Equal(int64(3), total)
	suite.Require().Len(tasks, 1)
	suite.Equal("Due second", tasks[0].Title)

	// Past the last page
	tasks, total, err = suite.service.ListTasks(ListTasksInput{
		UserID: suite.lead.ID, Page: 4, PageSize: 1,
	})
	suite.Require().NoError(err)
	suite.Equal(int64(3), total)
	suite.Empty(tasks)
}

func (suite *TaskServiceTestSuite) TestListTasksFilters() {
	first := suite.createTask("Fix login bug")
	suite.createTask("Write docs")

	_, err := suite.service.UpdateStatus(first.ID, suite.lead.ID, suite.lead.Username, models.TaskStatusInProgress)
	suite.Require().NoError(err)

	tasks, total, err := suite.service.ListTasks(ListTasksInput{
		UserID: suite.lead.ID, Search: "login", Page: 1, PageSize: 10,
	})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal("Fix login bug", tasks[0].Title)

	status := models.TaskStatusInProgress
	tasks, total, err = suite.service.ListTasks(ListTasksInput{
		UserID: suite.lead.ID, Status: &status, Page: 1, PageSize: 10,
	})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(first.ID, tasks[0].ID)

	tasks, total, err = suite.service.ListTasks(ListTasksInput{
		UserID: suite.lead.ID, AssignedTo: "WORKER", Page: 1, PageSize: 10,
	})
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
	suite.Len(tasks, 2)
}

func (suite *TaskServiceTestSuite) TestDashboard() {
	_, err := suite.service.CreateTask(CreateTaskInput{
		Title:         "Overdue",
		Description:   "d",
		AssignedTo:    suite.assignee.Username,
		GroupID:       suite.group.ID,
		DueDate:       time.Now().Add(-48 * time.Hour),
		Priority:      models.TaskPriorityHigh,
		ActorID:       suite.lead.ID,
		ActorUsername: suite.lead.Username,
	})
	suite.Require().NoError(err)

	closedLate, err := suite.service.CreateTask(CreateTaskInput{
		Title:         "Closed late",
		Description:   "d",
		AssignedTo:    suite.lead.Username,
		GroupID:       suite.group.ID,
		DueDate:       time.Now().Add(-48 * time.Hour),
		Priority:      models.TaskPriorityLow,
		ActorID:       suite.lead.ID,
		ActorUsername: suite.lead.Username,
	})
	suite.Require().NoError(err)
	_, err = suite.service.UpdateStatus(closedLate.ID, suite.lead.ID, suite.lead.Username, models.TaskStatusClosed)
	suite.Require().NoError(err)

	suite.createTask("On time")

	summary, err := suite.service.Dashboard(suite.assignee.ID, suite.assignee.Username, nil)
	suite.Require().NoError(err)

	suite.Equal(3, summary.TotalTasks)
	// Closed and completed tasks never count as overdue
	suite.Equal(1, summary.OverdueTasks)
	suite.Equal(1, summary.HighPriorityTasks)
	suite.Equal(1, summary.MediumPriorityTasks)
	suite.Equal(1, summary.LowPriorityTasks)
	suite.Equal(2, summary.MyTasks)
	suite.Empty(summary.GroupName)
}

func (suite *TaskServiceTestSuite) TestDashboardScopedToGroup() {
	suite.createTask("Scoped")

	summary, err := suite.service.Dashboard(suite.member.ID, suite.member.Username, &suite.group.ID)
	suite.Require().NoError(err)
	suite.Equal("Backend", summary.GroupName)
	suite.Equal(1, summary.TotalTasks)

	// A group the caller cannot access is never named
	hidden := &models.Group{Name: "Secret", LeadID: suite.outsider.ID}
	suite.Require().NoError(suite.db.Create(hidden).Error)

	summary, err = suite.service.Dashboard(suite.member.ID, suite.member.Username, &hidden.ID)
	suite.Require().NoError(err)
	suite.Equal("No Group", summary.GroupName)
	suite.Zero(summary.TotalTasks)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
