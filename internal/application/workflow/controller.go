package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shieldsec/shield-cli/internal/domain/assessment"
	"github.com/shieldsec/shield-cli/internal/domain/organization"
	"github.com/shieldsec/shield-cli/internal/domain/session"
	consts "github.com/shieldsec/shield-cli/internal/shared/constants"
	sharedErrors "github.com/shieldsec/shield-cli/internal/shared/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	msgSelectOrganization  = "Please select an organization"
	msgAddTechnology       = "Please add at least one technology to the stack"
	msgLoadOrganizations   = "Failed to fetch organizations"
	msgLoadTestCases       = "Failed to fetch test cases"
	msgLoadVulnerabilities = "Failed to fetch vulnerabilities"
	msgLoadListings        = "Failed to fetch test cases and vulnerabilities"
	msgRunFailed           = "Failed to run assessment"
)

// Config wires a Controller.
type Config struct {
	Organizations organization.Repository
	Assessments   assessment.Gateway
	Session       *session.Session
	Logger        *zap.Logger
	Notifier      Notifier
	SubmitTimeout time.Duration
	DefaultType   assessment.Type

	// ListingTimeout bounds one refresh of the test-case and vulnerability
	// listings, both fetches together.
	ListingTimeout time.Duration
}

// Controller drives one assessment workflow: pick an organization, edit its
// tech stack, choose an assessment type, submit and browse the result.
//
// All methods are safe for concurrent use. The mutex is never held across a
// network call.
type Controller struct {
	orgRepo        organization.Repository
	gateway        assessment.Gateway
	session        *session.Session
	logger         *zap.Logger
	notifier       Notifier
	submitTimeout  time.Duration
	listingTimeout time.Duration

	mu              sync.Mutex
	revision        uint64
	state           State
	loaded          bool
	organizations   []*organization.Organization
	selected        *organization.Organization
	stack           organization.TechStack
	assessmentType  assessment.Type
	view            View
	result          *assessment.Result
	testCases       []assessment.TestCase
	vulnerabilities []assessment.Vulnerability
	errMsg          string
	validation      string
	notice          string
	busy            bool
}

// New creates a controller in the Idle state.
func New(cfg Config) (*Controller, error) {
	if cfg.Organizations == nil {
		return nil, errors.New("organization repository is required")
	}
	if cfg.Assessments == nil {
		return nil, errors.New("assessment gateway is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = consts.DefaultSubmitTimeout
	}
	if cfg.ListingTimeout <= 0 {
		cfg.ListingTimeout = consts.DefaultListingTimeout
	}
	if cfg.DefaultType == "" {
		cfg.DefaultType = assessment.DefaultType
	}
	if !cfg.DefaultType.Valid() {
		return nil, fmt.Errorf("%w: %q", sharedErrors.ErrInvalidAssessmentType, cfg.DefaultType)
	}

	return &Controller{
		orgRepo:        cfg.Organizations,
		gateway:        cfg.Assessments,
		session:        cfg.Session,
		logger:         cfg.Logger,
		notifier:       cfg.Notifier,
		submitTimeout:  cfg.SubmitTimeout,
		listingTimeout: cfg.ListingTimeout,
		state:          StateIdle,
		assessmentType: cfg.DefaultType,
		view:           ViewOverview,
	}, nil
}

// LoadOrganizations fetches the organization list, selects the first entry
// and refreshes its listings. On failure the selection is cleared and the
// controller shows a retryable error.
func (c *Controller) LoadOrganizations(ctx context.Context) error {
	ctx = c.withSession(ctx)

	orgs, err := c.orgRepo.FindAll(ctx)
	if err != nil {
		c.logger.Warn("failed to load organizations", zap.Error(err))

		c.mu.Lock()
		c.organizations = nil
		c.selected = nil
		c.stack = organization.TechStack{}
		c.testCases = nil
		c.vulnerabilities = nil
		c.notice = ""
		c.errMsg = withReason(msgLoadOrganizations, err)
		if c.state != StateSubmitting {
			c.state = StateError
			c.result = nil
		}
		snap := c.commitLocked()
		c.mu.Unlock()

		c.publish(snap)
		return fmt.Errorf("failed to load organizations: %w", err)
	}

	c.mu.Lock()
	c.organizations = orgs
	c.loaded = true
	c.errMsg = ""
	c.validation = ""
	if len(orgs) > 0 {
		c.seedLocked(orgs[0])
	} else {
		c.selected = nil
		c.stack = organization.TechStack{}
		c.notice = ""
		c.testCases = nil
		c.vulnerabilities = nil
	}
	if c.state != StateSubmitting {
		c.state = StateConfiguring
		c.result = nil
		c.view = ViewOverview
	}
	orgID := c.selectedIDLocked()
	snap := c.commitLocked()
	c.mu.Unlock()

	c.logger.Debug("organizations loaded", zap.Int("count", len(orgs)))
	c.publish(snap)

	if orgID > 0 {
		// listing failures land in the banner; the load itself succeeded
		_ = c.refreshListings(ctx, orgID)
	}
	return nil
}

// SelectOrganization switches the active organization and re-seeds the tech
// stack from its stored value, discarding unsaved edits. It does not touch
// the network; call RefreshListings for the new organization's listings.
func (c *Controller) SelectOrganization(id int64) error {
	c.mu.Lock()
	org := c.findLocked(id)
	if org == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", sharedErrors.ErrOrganizationNotFound, id)
	}

	c.seedLocked(org)
	c.editedLocked()
	snap := c.commitLocked()
	c.mu.Unlock()

	if org.StackMalformed() {
		c.logger.Warn("stored tech stack unreadable, starting empty",
			zap.Int64("organization_id", org.ID()),
			zap.String("organization", org.Name()),
		)
	}
	c.publish(snap)
	return nil
}

// RefreshListings re-fetches test cases and vulnerabilities for the selected
// organization.
func (c *Controller) RefreshListings(ctx context.Context) error {
	c.mu.Lock()
	orgID := c.selectedIDLocked()
	c.mu.Unlock()

	if orgID == 0 {
		return sharedErrors.ErrOrganizationNotSelected
	}
	return c.refreshListings(c.withSession(ctx), orgID)
}

// AddTechnology appends a trimmed label to the tech stack. Blank labels and
// exact duplicates are rejected and leave the state untouched.
func (c *Controller) AddTechnology(label string) error {
	c.mu.Lock()
	if err := c.stack.Add(label); err != nil {
		c.mu.Unlock()
		return err
	}
	c.editedLocked()
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
	return nil
}

// RemoveTechnology removes the first exact match and reports whether anything
// was removed.
func (c *Controller) RemoveTechnology(label string) bool {
	c.mu.Lock()
	if !c.stack.Remove(label) {
		c.mu.Unlock()
		return false
	}
	c.editedLocked()
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
	return true
}

// SetAssessmentType changes the type used by the next submission.
func (c *Controller) SetAssessmentType(t assessment.Type) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", sharedErrors.ErrInvalidAssessmentType, t)
	}

	c.mu.Lock()
	if c.assessmentType == t {
		c.mu.Unlock()
		return nil
	}
	c.assessmentType = t
	c.editedLocked()
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
	return nil
}

// RunAssessment validates the current configuration and submits it. Only
// one submission runs at a time; a call made while another is in flight
// returns ErrAssessmentInProgress without touching the network.
//
// On success the previous result is replaced and the listings for the
// submitted organization are re-fetched before returning.
func (c *Controller) RunAssessment(ctx context.Context) (*assessment.Result, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		c.logger.Debug("assessment already running, trigger dropped")
		return nil, sharedErrors.ErrAssessmentInProgress
	}

	req, err := assessment.NewRequest(c.selectedIDLocked(), c.stack, c.assessmentType)
	if err != nil {
		c.validation = validationMessage(err)
		snap := c.commitLocked()
		c.mu.Unlock()

		c.publish(snap)
		return nil, err
	}

	c.busy = true
	c.validation = ""
	c.errMsg = ""
	c.state = StateSubmitting
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
	c.logger.Info("assessment submitted",
		zap.Int64("organization_id", req.OrganizationID()),
		zap.String("assessment_type", req.Type().String()),
		zap.Strings("tech_stack", req.TechStack()),
	)

	ctx = c.withSession(ctx)
	start := time.Now()
	result, err := c.submit(ctx, req)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		c.state = StateError
		c.errMsg = c.submissionMessage(err)
		snap = c.commitLocked()
		c.mu.Unlock()

		c.logger.Warn("assessment failed",
			zap.Int64("organization_id", req.OrganizationID()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		c.publish(snap)
		return nil, fmt.Errorf("%w: %w", sharedErrors.ErrAssessmentFailed, err)
	}

	c.result = result
	c.state = StateDisplaying
	c.view = ViewOverview
	snap = c.commitLocked()
	c.mu.Unlock()

	c.logger.Info("assessment completed",
		zap.String("assessment_id", result.ID()),
		zap.Int("test_cases", result.TestCasesCount()),
		zap.Int("vulnerabilities", result.VulnerabilitiesFound()),
		zap.Duration("duration", time.Since(start)),
	)
	c.publish(snap)

	_ = c.refreshListings(ctx, req.OrganizationID())
	return result, nil
}

// ViewResult switches which part of the result is shown.
func (c *Controller) ViewResult(v View) error {
	switch v {
	case ViewOverview, ViewTestCases, ViewVulnerabilities:
	default:
		return fmt.Errorf("%w: %q", sharedErrors.ErrInvalidView, v)
	}

	c.mu.Lock()
	if c.view == v {
		c.mu.Unlock()
		return nil
	}
	c.view = v
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
	return nil
}

// DismissError clears the banner. From Error the controller returns to
// Configuring, or to Idle when organizations never loaded.
func (c *Controller) DismissError() {
	c.mu.Lock()
	if c.errMsg == "" && c.state != StateError {
		c.mu.Unlock()
		return
	}
	c.errMsg = ""
	if c.state == StateError {
		if c.loaded {
			c.state = StateConfiguring
		} else {
			c.state = StateIdle
		}
	}
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) submit(ctx context.Context, req *assessment.Request) (result *assessment.Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("assessment gateway panic: %v", r)
		}
	}()

	result, err = c.gateway.Submit(ctx, req)
	if err == nil && result == nil {
		err = errors.New("empty assessment response")
	}
	return result, err
}

func (c *Controller) refreshListings(ctx context.Context, orgID int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.listingTimeout)
	defer cancel()

	var (
		g        errgroup.Group
		cases    []assessment.TestCase
		vulns    []assessment.Vulnerability
		casesErr error
		vulnsErr error
	)

	// each listing stands alone; one failing never cancels the other
	g.Go(func() error {
		cases, casesErr = c.gateway.ListTestCases(ctx, orgID)
		return nil
	})
	g.Go(func() error {
		vulns, vulnsErr = c.gateway.ListVulnerabilities(ctx, orgID)
		return nil
	})
	_ = g.Wait()

	if casesErr != nil {
		c.logger.Warn("failed to fetch test cases", zap.Int64("organization_id", orgID), zap.Error(casesErr))
	}
	if vulnsErr != nil {
		c.logger.Warn("failed to fetch vulnerabilities", zap.Int64("organization_id", orgID), zap.Error(vulnsErr))
	}

	c.mu.Lock()
	if c.selectedIDLocked() != orgID {
		c.mu.Unlock()
		c.logger.Debug("discarding listings for deselected organization", zap.Int64("organization_id", orgID))
		return errors.Join(casesErr, vulnsErr)
	}
	if casesErr != nil {
		c.testCases = nil
	} else {
		c.testCases = cases
	}
	if vulnsErr != nil {
		c.vulnerabilities = nil
	} else {
		c.vulnerabilities = vulns
	}
	if msg := listingMessage(casesErr, vulnsErr); msg != "" {
		c.errMsg = msg
	}
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
	return errors.Join(casesErr, vulnsErr)
}

// seedLocked makes org the selection and resets everything derived from the
// previous one.
func (c *Controller) seedLocked(org *organization.Organization) {
	c.selected = org
	c.stack = org.TechStack()
	c.testCases = nil
	c.vulnerabilities = nil
	c.validation = ""
	c.notice = ""
	if org.StackMalformed() {
		c.notice = fmt.Sprintf("Stored tech stack for %s could not be read; starting with an empty stack", org.Name())
	}
}

// editedLocked applies the transition shared by every configuration edit.
func (c *Controller) editedLocked() {
	c.validation = ""
	switch c.state {
	case StateDisplaying, StateError:
		c.state = StateConfiguring
		c.result = nil
		c.errMsg = ""
		c.view = ViewOverview
	case StateIdle:
		if c.loaded {
			c.state = StateConfiguring
		}
	}
}

func (c *Controller) findLocked(id int64) *organization.Organization {
	for _, org := range c.organizations {
		if org.ID() == id {
			return org
		}
	}
	return nil
}

func (c *Controller) selectedIDLocked() int64 {
	if c.selected == nil {
		return 0
	}
	return c.selected.ID()
}

func (c *Controller) commitLocked() Snapshot {
	c.revision++
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Revision:        c.revision,
		State:           c.state,
		Organizations:   append([]*organization.Organization(nil), c.organizations...),
		Selected:        c.selected,
		TechStack:       c.stack.Labels(),
		AssessmentType:  c.assessmentType,
		View:            c.view,
		Busy:            c.busy,
		Error:           c.errMsg,
		Validation:      c.validation,
		Notice:          c.notice,
		Result:          c.result,
		TestCases:       append([]assessment.TestCase(nil), c.testCases...),
		Vulnerabilities: append([]assessment.Vulnerability(nil), c.vulnerabilities...),
	}
}

func (c *Controller) publish(s Snapshot) {
	if c.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("snapshot notifier panicked", zap.Any("panic", r))
		}
	}()
	c.notifier.Publish(s)
}

func (c *Controller) withSession(ctx context.Context) context.Context {
	if c.session == nil || session.FromContext(ctx) != nil {
		return ctx
	}
	return session.NewContext(ctx, c.session)
}

func (c *Controller) submissionMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%s: no response after %s", msgRunFailed, c.submitTimeout)
	case errors.Is(err, context.Canceled):
		return msgRunFailed + ": cancelled"
	}
	if reason := reasonOf(err); reason != "" {
		return msgRunFailed + ": " + reason
	}
	return msgRunFailed + ". Please try again."
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, sharedErrors.ErrOrganizationNotSelected):
		return msgSelectOrganization
	case errors.Is(err, sharedErrors.ErrEmptyTechStack):
		return msgAddTechnology
	}
	return err.Error()
}

// reasoner is implemented by backend errors that carry a user-facing detail.
type reasoner interface {
	Reason() string
}

func reasonOf(err error) string {
	var r reasoner
	if errors.As(err, &r) {
		return r.Reason()
	}
	return ""
}

// listingMessage names every listing that failed. Distinct backend reasons
// are all kept.
func listingMessage(casesErr, vulnsErr error) string {
	switch {
	case casesErr != nil && vulnsErr != nil:
		a, b := reasonOf(casesErr), reasonOf(vulnsErr)
		switch {
		case a == "" || a == b:
			return withReason(msgLoadListings, vulnsErr)
		case b == "":
			return withReason(msgLoadListings, casesErr)
		}
		return msgLoadListings + ": " + a + "; " + b
	case casesErr != nil:
		return withReason(msgLoadTestCases, casesErr)
	case vulnsErr != nil:
		return withReason(msgLoadVulnerabilities, vulnsErr)
	}
	return ""
}

func withReason(msg string, err error) string {
	if reason := reasonOf(err); reason != "" {
		return msg + ": " + reason
	}
	return msg
}
