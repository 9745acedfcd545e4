package feed

// positionsQuery requests every vehicle position inside the network's
// bounding box, for rail-like modes only. The field set matches exactly
// what the pipeline consumes; anything else would be dead weight on a
// call that runs every minute.
const positionsQuery = `
  query Positions {
    vehiclePositions(
      neLat: 48.6238540716
      neLon: 22.710531447
      swLat: 45.7594811061
      swLon: 16.2022982113
      modes: [RAIL, TRAMTRAIN, SUBURBAN_RAILWAY]
    ) {
      vehicleId
      lat
      lon
      heading
      speed
      lastUpdated
      trip {
        stoptimes {
          scheduledArrival
          realtimeArrival
          scheduledDeparture
          realtimeDeparture
          stop {
            name
            lat
            lon
            platformCode
          }
        }
        serviceDate
        tripShortName
        route {
          textColor
          shortName
          longName
        }
        tripGeometry {
          points
        }
        wheelchairAccessible
        bikesAllowed
        infoServices {
          name
          fromStopIndex
          tillStopIndex
          fontCharSet
          fontCode
          displayable
        }
        alerts {
          alertDescriptionText
          alertUrl
          effectiveStartDate
          effectiveEndDate
        }
      }
    }
  }
`
