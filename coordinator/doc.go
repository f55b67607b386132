// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package coordinator implements the employee request-access flow of the CLA
console.

# Lifecycle

A Coordinator is created with its initialization parameters and the remote
services it may call:

	c := coordinator.New(coordinator.Params{
		ProjectID: "p-1",
		UserID:    "gh-1",
		CompanyID: "c-1",
		Identity:  coordinator.Anonymous{},
	}, coordinator.ClientServices(client), reporter)
	c.Start(ctx)

Start fetches the user, project, company and company/project signatures
concurrently. There is no barrier between them: each result lands in the
state as it arrives and failures are only reported.

# Managers

The first "ccla" signature is authoritative. Its ACL becomes the manager
list, kept ordered by case-insensitive name.

# Submission

	c.SetMode(models.ManagerModeSelectExisting)
	c.UpdateForm(models.UpdateFormRequest{UserEmail: &email, ManagerID: &id})
	conf, err := c.Submit(ctx)

Submit requires a valid email and a manager mode. After the request reaches
the company manager, a CCLA whitelist request is recorded in the background;
whether it succeeds or not is reported through events.Reporter only.

# Registry

Registry keeps the live flows of a server keyed by flow ID. A flow leaves
the registry when its request is sent (Complete), when it is dismissed, or
when it sits idle past the TTL:

	reg := coordinator.NewRegistry(coordinator.WithIdleTTL(30 * time.Minute))
	go reg.Run(ctx)
	defer reg.Shutdown()

Shutdown waits for in-flight submits and whitelist requests of every flow,
including ones already removed.
*/
package coordinator
